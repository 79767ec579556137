package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"weatheralert/internal/types"
)

// TriggerResult is returned to the invoker of a scheduled task.
type TriggerResult struct {
	Task   TaskType           `json:"task"`
	Report *types.CycleReport `json:"report,omitempty"`
	Purged *int64             `json:"purged,omitempty"`
}

// Runner runs one evaluation cycle. Implemented by *CycleRunner.
type Runner interface {
	Run(ctx context.Context, req CycleRequest) (types.CycleReport, error)
}

// TriggerHandler dispatches a TriggerPayload to the cycle runner or the
// maintenance service. It is the body of the evaluator Lambda and the
// job-runner tool.
type TriggerHandler struct {
	runner      Runner
	maintenance *MaintenanceService
	clock       types.Clock
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewTriggerHandler creates a TriggerHandler.
func NewTriggerHandler(runner Runner, maintenance *MaintenanceService, clock types.Clock, logger *slog.Logger) *TriggerHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maintenance == nil {
		maintenance = NewMaintenanceService(nil, logger)
	}
	return &TriggerHandler{
		runner:      runner,
		maintenance: maintenance,
		clock:       clock,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

// Handle validates the payload and runs the task. Per-user failures inside
// a cycle are reported, not returned; an error means the task as a whole
// failed and the invocation should be retried.
func (h *TriggerHandler) Handle(ctx context.Context, payload TriggerPayload) (TriggerResult, error) {
	if err := h.validate.Struct(payload); err != nil {
		return TriggerResult{}, types.NewAppError(types.ErrCodeValidationRequest, "invalid trigger payload", err)
	}
	task := payload.Task
	if task == "" {
		task = TaskEvaluate
	}

	switch task {
	case TaskPurgeForecastCache:
		now := h.clock.Now()
		if payload.ReferenceTime != nil {
			now = payload.ReferenceTime.UTC()
		}
		n, err := h.maintenance.PurgeForecastCache(ctx, now)
		if err != nil {
			return TriggerResult{Task: task}, err
		}
		return TriggerResult{Task: task, Purged: &n}, nil

	default:
		report, err := h.runner.Run(ctx, payload.CycleRequest)
		if err != nil {
			return TriggerResult{Task: task, Report: &report}, fmt.Errorf("evaluation cycle failed: %w", err)
		}
		h.logger.InfoContext(ctx, "trigger handled",
			"task", task,
			"cycle_id", report.CycleID,
			"notifications", report.NotificationsTotal(),
			"duration", report.Duration.Round(time.Millisecond).String(),
		)
		return TriggerResult{Task: task, Report: &report}, nil
	}
}
