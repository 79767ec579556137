package types

import "time"

// UserOutcome is how one user's evaluation in a cycle ended.
type UserOutcome string

const (
	OutcomeEvaluated        UserOutcome = "evaluated"
	OutcomeSkippedTransient UserOutcome = "skipped_transient"
	OutcomeSkippedPermanent UserOutcome = "skipped_permanent"
	OutcomeStoreUnavailable UserOutcome = "store_unavailable"
)

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	CycleID          string              `json:"cycle_id"`
	ReferenceTime    time.Time           `json:"reference_time"`
	StartedAt        time.Time           `json:"started_at"`
	Duration         time.Duration       `json:"duration_ns"`
	UsersTotal       int                 `json:"users_total"`
	Outcomes         map[UserOutcome]int `json:"outcomes"`
	Notifications    map[AlertKind]int   `json:"notifications"`
	Conflicts        int                 `json:"conflicts"`
	DispatchFailures int                 `json:"dispatch_failures"`
}

// NewCycleReport returns an empty report with initialized maps.
func NewCycleReport(cycleID string, referenceTime, startedAt time.Time) CycleReport {
	return CycleReport{
		CycleID:       cycleID,
		ReferenceTime: referenceTime,
		StartedAt:     startedAt,
		Outcomes:      make(map[UserOutcome]int),
		Notifications: make(map[AlertKind]int),
	}
}

// NotificationsTotal sums Notifications across kinds.
func (r CycleReport) NotificationsTotal() int {
	n := 0
	for _, c := range r.Notifications {
		n += c
	}
	return n
}
