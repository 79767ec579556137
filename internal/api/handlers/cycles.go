// Package handlers contains the HTTP handlers of the weatheralert ops API.
// Handlers depend on small locally defined interfaces so tests can inject
// hand-written fakes.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"weatheralert/internal/core"
	"weatheralert/internal/scheduler"
	"weatheralert/internal/types"
)

// CycleRunner runs one evaluation cycle.
type CycleRunner interface {
	Run(ctx context.Context, req scheduler.CycleRequest) (types.CycleReport, error)
}

// CachePurger runs the forecast cache purge.
type CachePurger interface {
	PurgeForecastCache(ctx context.Context, now time.Time) (int64, error)
}

// CycleHandler exposes manual cycle runs and maintenance tasks.
type CycleHandler struct {
	runner    CycleRunner
	purger    CachePurger
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewCycleHandler creates a CycleHandler. purger may be nil, in which case
// the purge endpoint is not mounted.
func NewCycleHandler(
	runner CycleRunner,
	purger CachePurger,
	clock types.Clock,
	val *core.Validator,
	logger *slog.Logger,
) *CycleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &CycleHandler{runner: runner, purger: purger, clock: clock, validator: val, logger: logger}
}

// RegisterRoutes mounts the cycle endpoints.
func (h *CycleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/cycles", h.HandleRunCycle)
	if h.purger != nil {
		r.Post("/maintenance/forecast-cache/purge", h.HandlePurgeCache)
	}
}

// HandleRunCycle handles POST /v1/cycles. The body is optional; an empty
// body runs a cycle for every active user at the current time. The response
// is the finished cycle's report.
func (h *CycleHandler) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	var req scheduler.CycleRequest
	if err := core.DecodeJSON(w, r, &req, true); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	report, err := h.runner.Run(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual cycle failed",
			"cycle_id", report.CycleID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}

type purgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// HandlePurgeCache handles POST /v1/maintenance/forecast-cache/purge.
func (h *CycleHandler) HandlePurgeCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.purger.PurgeForecastCache(r.Context(), h.clock.Now())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "forecast cache purge failed", "error", err)
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: purgeResponse{Deleted: n}})
}
