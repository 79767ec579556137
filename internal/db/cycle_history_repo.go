package db

import (
	"context"
	"encoding/json"
	"time"

	"weatheralert/internal/types"
)

// CycleHistoryRepository records evaluation cycle runs in cycle_history for
// operational visibility.
type CycleHistoryRepository struct {
	db DBTX
}

// NewCycleHistoryRepository creates a CycleHistoryRepository backed by db.
func NewCycleHistoryRepository(db DBTX) *CycleHistoryRepository {
	return &CycleHistoryRepository{db: db}
}

// Start inserts a running entry for the cycle.
func (r *CycleHistoryRepository) Start(ctx context.Context, cycleID string, referenceTime time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cycle_history (cycle_id, reference_time, started_at, status)
		 VALUES ($1, $2, NOW(), 'running')`,
		cycleID,
		referenceTime,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to start cycle history entry", err)
	}
	return nil
}

// Finish stores the final status and the report as JSON. If cycleErr is
// non-nil its message is stored in the error column.
func (r *CycleHistoryRepository) Finish(ctx context.Context, cycleID string, report any, cycleErr error) error {
	status := "success"
	var errMsg *string
	if cycleErr != nil {
		status = "failed"
		s := cycleErr.Error()
		errMsg = &s
	}
	body, err := json.Marshal(report)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode cycle report", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE cycle_history
		 SET finished_at = NOW(), status = $2, report = $3, error = $4
		 WHERE cycle_id = $1`,
		cycleID,
		status,
		body,
		errMsg,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to finish cycle history entry", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "cycle history entry not found", nil)
	}
	return nil
}
