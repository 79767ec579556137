package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"weatheralert/internal/alerts"
	"weatheralert/internal/types"
)

// Defaults applied by NewCycleRunner for zero config values.
const (
	DefaultWorkers         = 8
	DefaultFetchTimeout    = 10 * time.Second
	DefaultDispatchTimeout = 5 * time.Second
)

// CycleRunnerConfig holds the collaborators of a CycleRunner. History and
// Metrics are optional.
type CycleRunnerConfig struct {
	Users      UserDirectory
	Forecasts  ForecastSource
	Store      alerts.StateStore
	Dispatcher Dispatcher
	Evaluator  *Evaluator
	Metrics    CycleMetrics
	History    CycleHistory

	Workers         int
	FetchTimeout    time.Duration
	DispatchTimeout time.Duration

	Clock  types.Clock
	Logger *slog.Logger
}

// CycleRunner executes evaluation cycles.
type CycleRunner struct {
	cfg    CycleRunnerConfig
	logger *slog.Logger
}

// NewCycleRunner creates a CycleRunner.
func NewCycleRunner(cfg CycleRunnerConfig) *CycleRunner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CycleRunner{cfg: cfg, logger: cfg.Logger}
}

// userResult is what one user's evaluation contributed to the report.
type userResult struct {
	outcome          types.UserOutcome
	notifications    []types.AlertKind
	conflicts        int
	dispatchFailures int
}

// Run executes one cycle. Per-user failures are isolated and only counted;
// Run fails only when the user list cannot be loaded.
func (r *CycleRunner) Run(ctx context.Context, req CycleRequest) (types.CycleReport, error) {
	startedAt := r.cfg.Clock.Now()
	now := startedAt
	if req.ReferenceTime != nil {
		now = req.ReferenceTime.UTC()
	}

	cycleID := uuid.NewString()
	ctx = types.WithCycleID(ctx, cycleID)
	report := types.NewCycleReport(cycleID, now, startedAt)

	if r.cfg.History != nil {
		if err := r.cfg.History.Start(ctx, cycleID, now); err != nil {
			r.logger.WarnContext(ctx, "failed to record cycle start", "cycle_id", cycleID, "error", err)
		}
	}

	users, err := r.cfg.Users.ListActiveUsers(ctx)
	if err != nil {
		err = fmt.Errorf("listing active users: %w", err)
		r.finish(ctx, &report, startedAt, err)
		return report, err
	}
	users = selectUsers(users, req.UserIDs)
	report.UsersTotal = len(users)

	r.logger.InfoContext(ctx, "cycle started",
		"cycle_id", cycleID,
		"reference_time", now.Format(time.RFC3339),
		"users", len(users),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, user := range users {
		g.Go(func() error {
			res := r.runUser(gctx, user, now)

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes[res.outcome]++
			for _, kind := range res.notifications {
				report.Notifications[kind]++
			}
			report.Conflicts += res.conflicts
			report.DispatchFailures += res.dispatchFailures
			return nil
		})
	}
	_ = g.Wait()

	r.finish(ctx, &report, startedAt, nil)
	return report, nil
}

func (r *CycleRunner) finish(ctx context.Context, report *types.CycleReport, startedAt time.Time, cycleErr error) {
	report.Duration = r.cfg.Clock.Now().Sub(startedAt)

	if r.cfg.Metrics != nil && cycleErr == nil {
		r.cfg.Metrics.RecordCycle(ctx, *report)
	}
	if r.cfg.History != nil {
		if err := r.cfg.History.Finish(ctx, report.CycleID, report, cycleErr); err != nil {
			r.logger.WarnContext(ctx, "failed to record cycle finish", "cycle_id", report.CycleID, "error", err)
		}
	}

	if cycleErr != nil {
		r.logger.ErrorContext(ctx, "cycle failed", "cycle_id", report.CycleID, "error", cycleErr)
		return
	}
	r.logger.InfoContext(ctx, "cycle complete",
		"cycle_id", report.CycleID,
		"users", report.UsersTotal,
		"evaluated", report.Outcomes[types.OutcomeEvaluated],
		"skipped_transient", report.Outcomes[types.OutcomeSkippedTransient],
		"skipped_permanent", report.Outcomes[types.OutcomeSkippedPermanent],
		"store_unavailable", report.Outcomes[types.OutcomeStoreUnavailable],
		"notifications", report.NotificationsTotal(),
		"dispatch_failures", report.DispatchFailures,
		"duration_ms", report.Duration.Milliseconds(),
	)
}

// selectUsers drops duplicate user IDs and, when ids is non-empty, keeps
// only the listed users.
func selectUsers(users []types.UserLocation, ids []string) []types.UserLocation {
	var want map[string]bool
	if len(ids) > 0 {
		want = make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
	}

	seen := make(map[string]bool, len(users))
	out := make([]types.UserLocation, 0, len(users))
	for _, u := range users {
		if seen[u.UserID] || (want != nil && !want[u.UserID]) {
			continue
		}
		seen[u.UserID] = true
		out = append(out, u)
	}
	return out
}

// runUser fetches, evaluates and dispatches for one user.
func (r *CycleRunner) runUser(ctx context.Context, user types.UserLocation, now time.Time) userResult {
	log := r.logger.With("user_id", user.UserID, "cycle_id", types.GetCycleID(ctx))

	if ctx.Err() != nil {
		return userResult{outcome: types.OutcomeSkippedTransient}
	}

	loc, err := user.LoadLocation()
	if err != nil {
		r.disableLocation(ctx, log, user, err, now)
		return userResult{outcome: types.OutcomeSkippedPermanent}
	}

	snap, err := r.fetch(ctx, user)
	if err != nil {
		if types.IsPermanentFetch(err) {
			r.disableLocation(ctx, log, user, err, now)
			return userResult{outcome: types.OutcomeSkippedPermanent}
		}
		log.WarnContext(ctx, "forecast unavailable, skipping user", "error", err)
		return userResult{outcome: types.OutcomeSkippedTransient}
	}

	today := types.DateOf(now.In(loc))
	if !snap.Covers(today, r.cfg.Evaluator.RequiredDays()) {
		log.WarnContext(ctx, "forecast does not cover the evaluation window, skipping user",
			"today", today.String(),
			"days", len(snap.Days),
		)
		return userResult{outcome: types.OutcomeSkippedTransient}
	}

	res, evalErr := r.cfg.Evaluator.EvaluateAt(ctx, user, snap, r.cfg.Store, now)

	out := userResult{outcome: types.OutcomeEvaluated, conflicts: res.Conflicts()}
	for _, req := range res.Requests {
		out.notifications = append(out.notifications, req.Kind)
		if err := r.dispatch(ctx, req); err != nil {
			out.dispatchFailures++
			log.ErrorContext(ctx, "notification dispatch failed",
				"alert_kind", string(req.Kind),
				"dedupe_key", req.DedupeKey,
				"error", err,
			)
		}
	}

	if evalErr != nil {
		switch types.CodeOf(evalErr) {
		case types.ErrCodeStoreUnavailable:
			out.outcome = types.OutcomeStoreUnavailable
		default:
			out.outcome = types.OutcomeSkippedTransient
		}
	}
	return out
}

func (r *CycleRunner) fetch(ctx context.Context, user types.UserLocation) (*types.ForecastSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	snap, err := r.cfg.Forecasts.Fetch(ctx, user.Location())
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, types.NewAppError(types.ErrCodeForecastIncomplete, "forecast source returned no snapshot", nil)
	}
	return snap, nil
}

// dispatch hands req off once. Retrying is the dispatcher's concern; the
// state transition has already committed.
func (r *CycleRunner) dispatch(ctx context.Context, req types.NotificationRequest) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DispatchTimeout)
	defer cancel()
	return r.cfg.Dispatcher.Send(ctx, req)
}

func (r *CycleRunner) disableLocation(ctx context.Context, log *slog.Logger, user types.UserLocation, cause error, now time.Time) {
	changed, err := r.cfg.Users.RecordLocationFailure(ctx, user.UserID, cause.Error(), now)
	if err != nil {
		log.ErrorContext(ctx, "failed to record location failure", "error", err, "cause", cause)
		return
	}
	if changed {
		log.WarnContext(ctx, "location rejected, alerts disabled until it changes",
			"location", user.Location().Key(),
			"error", cause,
		)
	}
}
