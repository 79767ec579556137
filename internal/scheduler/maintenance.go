package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TaskType selects what a scheduled invocation does. The empty task is an
// evaluation cycle.
type TaskType string

const (
	TaskEvaluate           TaskType = "evaluate"
	TaskPurgeForecastCache TaskType = "purge_forecast_cache"
)

// TriggerPayload is the event body sent by the scheduled rules. Task
// defaults to TaskEvaluate.
type TriggerPayload struct {
	Task TaskType `json:"task,omitempty" validate:"omitempty,oneof=evaluate purge_forecast_cache"`
	CycleRequest
}

// ForecastCachePurger deletes expired forecast cache rows.
type ForecastCachePurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceService runs housekeeping tasks that share the evaluator's
// trigger.
type MaintenanceService struct {
	cache  ForecastCachePurger
	logger *slog.Logger
}

// NewMaintenanceService creates a MaintenanceService. cache may be nil when
// no persistent cache is configured.
func NewMaintenanceService(cache ForecastCachePurger, logger *slog.Logger) *MaintenanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceService{cache: cache, logger: logger}
}

// PurgeForecastCache removes cache entries that expired before now and
// returns how many were deleted.
func (s *MaintenanceService) PurgeForecastCache(ctx context.Context, now time.Time) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purging forecast cache: %w", err)
	}
	s.logger.InfoContext(ctx, "forecast cache purged", "deleted", n, "before", now.Format(time.RFC3339))
	return n, nil
}
