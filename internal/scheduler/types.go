// Package scheduler runs evaluation cycles: for each registered user it
// fetches a forecast, decides which alerts fire through the alert state
// machine and hands committed notifications to the dispatcher.
//
// A cycle is triggered externally (an EventBridge schedule in production).
// Triggers may be missed, delayed or overlap; correctness rests on the
// per-(user, kind) compare-and-set in the state store, not on the trigger.
package scheduler

import (
	"context"
	"time"

	"weatheralert/internal/types"
)

// CycleRequest is the JSON payload that starts a cycle, from the scheduled
// trigger or the ops API:
//
//	{
//	  "reference_time": "2026-10-14T06:10:00Z",  // optional
//	  "user_ids": ["u1", "u2"]                    // optional
//	}
type CycleRequest struct {
	// ReferenceTime overrides "now" for manual runs and backfills. If nil,
	// the runner's clock is used.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
	// UserIDs restricts the cycle to these active users.
	UserIDs []string `json:"user_ids,omitempty" validate:"omitempty,max=1000,dive,required,max=128"`
}

// UserDirectory is the read side of the user-preference collaborator, plus
// the one write the scheduler makes: flagging a location the forecast
// provider rejects.
type UserDirectory interface {
	ListActiveUsers(ctx context.Context) ([]types.UserLocation, error)
	GetUser(ctx context.Context, userID string) (types.UserLocation, error)
	// RecordLocationFailure disables the user until the location changes.
	// It reports whether this call made the change.
	RecordLocationFailure(ctx context.Context, userID string, reason string, at time.Time) (bool, error)
}

// ForecastSource returns a normalized forecast for a location.
type ForecastSource interface {
	Fetch(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error)
}

// Dispatcher hands a committed request to the messaging side.
type Dispatcher interface {
	Send(ctx context.Context, req types.NotificationRequest) error
}

// CycleMetrics publishes the report of a finished cycle.
type CycleMetrics interface {
	RecordCycle(ctx context.Context, report types.CycleReport)
}

// CycleHistory records cycle executions.
type CycleHistory interface {
	Start(ctx context.Context, cycleID string, referenceTime time.Time) error
	Finish(ctx context.Context, cycleID string, report any, cycleErr error) error
}
