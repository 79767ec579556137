package alerts

import (
	"context"
	"log/slog"
	"time"

	"weatheralert/internal/types"
)

// StateStore is durable per-(user, kind) alert state with compare-and-set.
// Get returns the default Idle record when none exists. CompareAndSet writes
// next only if the stored record still matches expected's version and
// reports false on conflict.
type StateStore interface {
	Get(ctx context.Context, userID string, kind types.AlertKind) (types.AlertState, error)
	CompareAndSet(ctx context.Context, expected, next types.AlertState) (bool, error)
}

// Outcome is the result of one state machine transition attempt.
type Outcome string

const (
	// OutcomeNoTarget: nothing is eligible this cycle.
	OutcomeNoTarget Outcome = "no_target"
	// OutcomeAlreadyFired: the eligible target has already fired.
	OutcomeAlreadyFired Outcome = "already_fired"
	// OutcomeStale: a cycle whose reference time precedes the last firing
	// (a delayed run or a backfill) computed a target older than the one
	// already fired. A current cycle may still fire an earlier target, such
	// as a sunny window that a forecast revision inserted ahead of the one
	// that fired.
	OutcomeStale Outcome = "stale"
	// OutcomeFired: a new target fired and the request was committed.
	OutcomeFired Outcome = "fired"
	// OutcomeBaseline: a forecast digest was recorded without firing.
	OutcomeBaseline Outcome = "baseline"
	// OutcomeConflict: a concurrent cycle changed the record first; the
	// emission was dropped.
	OutcomeConflict Outcome = "conflict"
)

// Writes reports whether the outcome requires persisting Next.
func (o Outcome) Writes() bool {
	return o == OutcomeFired || o == OutcomeBaseline
}

// Decision is what the machine decided for one (user, kind).
type Decision struct {
	Outcome Outcome
	Next    types.AlertState
	Request *types.NotificationRequest
}

// Machine runs the per-(user, kind) alert lifecycle. A target fires at most
// once: the stored target identity is compared with the newly computed one
// and only a different, not older, identity transitions to Fired. Moving on
// to a new date or window is what returns the record to Idle.
type Machine struct {
	logger *slog.Logger
}

// NewMachine creates a Machine.
func NewMachine(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{logger: logger}
}

// Decide computes the transition from prior given e. It is pure.
func (m *Machine) Decide(prior types.AlertState, e Eligibility, now time.Time) Decision {
	outcome := OutcomeNoTarget

	if t := e.Target; t != nil {
		switch {
		case prior.Target == t.Identity:
			outcome = OutcomeAlreadyFired
		case isStale(prior, t, now):
			outcome = OutcomeStale
		default:
			return m.fire(prior, e, now)
		}
	}

	if o := e.Observation; o != nil && (prior.DigestDate == nil || o.Date.After(*prior.DigestDate)) {
		next := prior
		date, digest := o.Date, o.Digest
		next.DigestDate = &date
		next.LastDigest = &digest
		next.UpdatedAt = now
		return Decision{Outcome: OutcomeBaseline, Next: next}
	}

	return Decision{Outcome: outcome, Next: prior}
}

func isStale(prior types.AlertState, t *Target, now time.Time) bool {
	if prior.TargetAt == nil || prior.LastFiredAt == nil {
		return false
	}
	return t.At.Before(*prior.TargetAt) && now.Before(*prior.LastFiredAt)
}

func (m *Machine) fire(prior types.AlertState, e Eligibility, now time.Time) Decision {
	t := e.Target
	key := DedupeKey(prior.UserID, prior.Kind, t.Identity)
	date, at, firedAt := t.Date, t.At, now

	next := prior
	next.Target = t.Identity
	next.TargetDate = &date
	next.TargetAt = &at
	next.LastFiredAt = &firedAt
	next.FiredDedupeKey = key
	next.UpdatedAt = now
	if o := e.Observation; o != nil {
		obsDate, digest := o.Date, o.Digest
		next.DigestDate = &obsDate
		next.LastDigest = &digest
	}

	return Decision{
		Outcome: OutcomeFired,
		Next:    next,
		Request: &types.NotificationRequest{
			UserID:    prior.UserID,
			Kind:      prior.Kind,
			DedupeKey: key,
			Payload:   t.Payload,
			CreatedAt: now,
		},
	}
}

// EligibilityFunc computes the eligible target given the stored state.
type EligibilityFunc func(prior types.AlertState) (Eligibility, error)

// Apply performs one atomic read-modify-write for (userID, kind). The
// returned Decision carries a Request only when the transition to Fired was
// committed. Conflicts are reported as OutcomeConflict, not as errors.
func (m *Machine) Apply(ctx context.Context, store StateStore, userID string, kind types.AlertKind, now time.Time, eligible EligibilityFunc) (Decision, error) {
	prior, err := store.Get(ctx, userID, kind)
	if err != nil {
		return Decision{}, types.NewAppError(types.ErrCodeStoreUnavailable, "failed to read alert state", err)
	}
	if prior.UserID == "" {
		prior = types.NewAlertState(userID, kind)
	}

	e, err := eligible(prior)
	if err != nil {
		return Decision{}, err
	}

	d := m.Decide(prior, e, now)
	if !d.Outcome.Writes() {
		return d, nil
	}

	ok, err := store.CompareAndSet(ctx, prior, d.Next)
	if err != nil {
		return Decision{}, types.NewAppError(types.ErrCodeStoreUnavailable, "failed to write alert state", err)
	}
	if !ok {
		m.logger.InfoContext(ctx, "alert state changed concurrently, dropping transition",
			"user_id", userID,
			"alert_kind", kind,
			"outcome", d.Outcome,
		)
		return Decision{Outcome: OutcomeConflict, Next: prior}, nil
	}

	return d, nil
}
