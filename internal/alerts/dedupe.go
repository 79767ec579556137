package alerts

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"weatheralert/internal/types"
)

// DedupeKey derives the key that identifies one eligible event. It is a pure
// function of its inputs, so every evaluation of the same event produces the
// same key.
func DedupeKey(userID string, kind types.AlertKind, targetIdentity string) string {
	sum := blake2b.Sum256([]byte(userID + "\x00" + string(kind) + "\x00" + targetIdentity))
	return hex.EncodeToString(sum[:])
}

// DateIdentity is the target identity for date-scoped alerts.
func DateIdentity(d types.Date) string {
	return d.String()
}

// WindowIdentity is the target identity of a sunny window.
func WindowIdentity(d types.Date, startHour int) string {
	return fmt.Sprintf("%s@%02d", d, startHour)
}
