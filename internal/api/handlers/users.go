package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"weatheralert/internal/core"
	"weatheralert/internal/types"
)

// UserReader looks up a single user.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (types.UserLocation, error)
}

// AlertStateLister lists the stored alert states of a user.
type AlertStateLister interface {
	ListByUser(ctx context.Context, userID string) ([]types.AlertState, error)
}

// UserHandler exposes read-only views of a user's location and alert state.
type UserHandler struct {
	users  UserReader
	states AlertStateLister
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserReader, states AlertStateLister, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{users: users, states: states, logger: logger}
}

// RegisterRoutes mounts the user endpoints.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}", h.HandleGetUser)
	r.Get("/users/{userID}/alerts", h.HandleListAlerts)
}

type userResponse struct {
	types.UserLocation
	EnabledAlertKinds []string `json:"enabled_alert_kinds"`
}

// HandleGetUser handles GET /v1/users/{userID}.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: userResponse{
		UserLocation:      user,
		EnabledAlertKinds: user.EnabledAlertKinds.Strings(),
	}})
}

// alertStateView is one entry of GET /v1/users/{userID}/alerts. Kinds the
// user has enabled but that were never evaluated appear with a zero version.
type alertStateView struct {
	types.AlertState
	Enabled bool `json:"enabled"`
}

// HandleListAlerts handles GET /v1/users/{userID}/alerts. An unknown user is
// a 404; stored states for kinds the user has since disabled are still
// listed, flagged enabled=false.
func (h *UserHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	states, err := h.states.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing alert states failed", "user_id", userID, "error", err)
		core.Error(w, r, err)
		return
	}

	byKind := make(map[types.AlertKind]types.AlertState, len(states))
	for _, s := range states {
		byKind[s.Kind] = s
	}
	for _, kind := range user.EnabledAlertKinds.Slice() {
		if _, ok := byKind[kind]; !ok {
			byKind[kind] = types.NewAlertState(userID, kind)
		}
	}

	views := make([]alertStateView, 0, len(byKind))
	for kind, s := range byKind {
		views = append(views, alertStateView{AlertState: s, Enabled: user.EnabledAlertKinds.Has(kind)})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Kind < views[j].Kind })

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: views})
}
