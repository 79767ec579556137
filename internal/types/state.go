package types

import (
	"encoding/hex"
	"fmt"
	"time"
)

// DigestSize is the byte length of a forecast Digest.
const DigestSize = 32

// Digest is an opaque fingerprint of the user-facing fields of one forecast day.
type Digest [DigestSize]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(b []byte) error {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("invalid digest: %w", err)
	}
	return d.SetBytes(raw)
}

// SetBytes copies raw into d. raw must be exactly DigestSize bytes.
func (d *Digest) SetBytes(raw []byte) error {
	if len(raw) != DigestSize {
		return fmt.Errorf("invalid digest length %d", len(raw))
	}
	copy(d[:], raw)
	return nil
}

// AlertState is the persisted lifecycle record for one (user, alert kind).
//
// Target is the identity of the event that last fired and TargetAt the instant
// that event is anchored to; together they decide whether a newly computed
// target is new, repeated, or older than what already fired. LastFiredAt and
// FiredDedupeKey are set together. LastDigest and DigestDate are used only by
// forecast change alerts. Version is the compare-and-set token; zero means the
// record has never been stored.
type AlertState struct {
	UserID         string     `json:"user_id"`
	Kind           AlertKind  `json:"alert_kind"`
	Target         string     `json:"target,omitempty"`
	TargetDate     *Date      `json:"target_date,omitempty"`
	TargetAt       *time.Time `json:"target_at,omitempty"`
	LastFiredAt    *time.Time `json:"last_fired_at,omitempty"`
	FiredDedupeKey string     `json:"fired_dedupe_key,omitempty"`
	LastDigest     *Digest    `json:"last_digest,omitempty"`
	DigestDate     *Date      `json:"digest_date,omitempty"`
	Version        int64      `json:"version"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewAlertState returns the default Idle record for a pair that has never
// been evaluated.
func NewAlertState(userID string, kind AlertKind) AlertState {
	return AlertState{UserID: userID, Kind: kind}
}

// HasFired reports whether the record has ever fired.
func (s AlertState) HasFired() bool {
	return s.LastFiredAt != nil && s.FiredDedupeKey != ""
}
