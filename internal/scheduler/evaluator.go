package scheduler

import (
	"context"
	"log/slog"
	"time"

	"weatheralert/internal/alerts"
	"weatheralert/internal/types"
)

// Evaluator decides which notifications fire for one user and one forecast.
// It is safe for concurrent use across different users. Calls for the same
// user must not overlap; the state store's compare-and-set drops the loser
// if they do.
type Evaluator struct {
	rules   *alerts.Rules
	machine *alerts.Machine
	clock   types.Clock
	logger  *slog.Logger
}

// NewEvaluator creates an Evaluator. A nil clock uses the real clock.
func NewEvaluator(rules *alerts.Rules, clock types.Clock, logger *slog.Logger) *Evaluator {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		rules:   rules,
		machine: alerts.NewMachine(logger),
		clock:   clock,
		logger:  logger,
	}
}

// RequiredDays is the number of local days, starting today, a forecast must
// cover to be evaluated.
func (e *Evaluator) RequiredDays() int {
	return e.rules.Config().RequiredDays()
}

// Result is the outcome of evaluating every enabled kind for one user.
type Result struct {
	Requests []types.NotificationRequest
	Outcomes map[types.AlertKind]alerts.Outcome
}

// Conflicts counts kinds whose transition lost a compare-and-set race.
func (r Result) Conflicts() int {
	n := 0
	for _, o := range r.Outcomes {
		if o == alerts.OutcomeConflict {
			n++
		}
	}
	return n
}

// Evaluate runs the alert rules for user against snap at the clock's
// current time. See EvaluateAt.
func (e *Evaluator) Evaluate(ctx context.Context, user types.UserLocation, snap *types.ForecastSnapshot, store alerts.StateStore) ([]types.NotificationRequest, error) {
	res, err := e.EvaluateAt(ctx, user, snap, store, e.clock.Now())
	return res.Requests, err
}

// EvaluateAt evaluates each kind enabled for user independently, in
// types.AllAlertKinds order. A store failure aborts the remaining kinds;
// requests already committed are still returned alongside the error so the
// caller can dispatch them.
func (e *Evaluator) EvaluateAt(ctx context.Context, user types.UserLocation, snap *types.ForecastSnapshot, store alerts.StateStore, now time.Time) (Result, error) {
	res := Result{Outcomes: make(map[types.AlertKind]alerts.Outcome)}

	loc, err := user.LoadLocation()
	if err != nil {
		return res, err
	}

	for _, kind := range user.EnabledAlertKinds.Slice() {
		d, err := e.machine.Apply(ctx, store, user.UserID, kind, now, func(prior types.AlertState) (alerts.Eligibility, error) {
			return e.rules.Eligible(kind, user, snap, prior, now, loc)
		})
		if err != nil {
			e.logger.ErrorContext(ctx, "alert evaluation aborted",
				"user_id", user.UserID,
				"alert_kind", string(kind),
				"error", err,
			)
			return res, err
		}

		res.Outcomes[kind] = d.Outcome
		if d.Request != nil {
			res.Requests = append(res.Requests, *d.Request)
		}
		e.logger.DebugContext(ctx, "alert evaluated",
			"user_id", user.UserID,
			"alert_kind", string(kind),
			"outcome", string(d.Outcome),
		)
	}
	return res, nil
}
