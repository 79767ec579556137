package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"weatheralert/internal/db"
	"weatheralert/internal/types"
)

type failingLister struct{}

func (failingLister) ListByUser(context.Context, string) ([]types.AlertState, error) {
	return nil, types.NewAppError(types.ErrCodeStoreUnavailable, "state store unavailable", errors.New("timeout"))
}

func testUser() types.UserLocation {
	return types.UserLocation{
		UserID:            "u1",
		Latitude:          55.7558,
		Longitude:         37.6173,
		Timezone:          "Europe/Moscow",
		LocationName:      "Moscow",
		EnabledAlertKinds: types.NewAlertKindSet(types.AlertKindDailySummary, types.AlertKindSunnyPreAlert),
	}
}

func makeUserRouter(states AlertStateLister) http.Handler {
	h := NewUserHandler(db.NewMemoryUserDirectory([]types.UserLocation{testUser()}), states, nil)
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func TestHandleGetUser(t *testing.T) {
	rec := httptest.NewRecorder()
	makeUserRouter(db.NewMemoryStateStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["timezone"] != "Europe/Moscow" {
		t.Errorf("timezone = %v", resp.Data["timezone"])
	}
	kinds, _ := resp.Data["enabled_alert_kinds"].([]any)
	if len(kinds) != 2 || kinds[0] != "daily_summary" || kinds[1] != "sunny_pre_alert" {
		t.Errorf("enabled_alert_kinds = %v", resp.Data["enabled_alert_kinds"])
	}
}

func TestHandleGetUser_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	makeUserRouter(db.NewMemoryStateStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListAlerts(t *testing.T) {
	store := db.NewMemoryStateStore()
	ctx := context.Background()

	// A stored sunny state plus a leftover forecast change state for a kind
	// the user no longer has enabled.
	sunny := types.NewAlertState("u1", types.AlertKindSunnyPreAlert)
	next := sunny
	next.Target = "2026-10-14@10"
	next.FiredDedupeKey = "key-1"
	next.Version = 1
	if ok, err := store.CompareAndSet(ctx, sunny, next); err != nil || !ok {
		t.Fatalf("seed sunny: ok=%v err=%v", ok, err)
	}
	change := types.NewAlertState("u1", types.AlertKindForecastChange)
	changeNext := change
	changeNext.Version = 1
	if ok, err := store.CompareAndSet(ctx, change, changeNext); err != nil || !ok {
		t.Fatalf("seed change: ok=%v err=%v", ok, err)
	}

	rec := httptest.NewRecorder()
	makeUserRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1/alerts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []alertStateView `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("got %d states, want 3: %+v", len(resp.Data), resp.Data)
	}

	got := make(map[types.AlertKind]alertStateView)
	for _, v := range resp.Data {
		got[v.Kind] = v
	}
	if v := got[types.AlertKindDailySummary]; !v.Enabled || v.Version != 0 {
		t.Errorf("daily summary = %+v, want enabled and never stored", v)
	}
	if v := got[types.AlertKindSunnyPreAlert]; !v.Enabled || v.Target != "2026-10-14@10" {
		t.Errorf("sunny = %+v", v)
	}
	if v := got[types.AlertKindForecastChange]; v.Enabled {
		t.Errorf("forecast change = %+v, want enabled=false", v)
	}
}

func TestHandleListAlerts_StoreUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	makeUserRouter(failingLister{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1/alerts", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleListAlerts_UnknownUser(t *testing.T) {
	rec := httptest.NewRecorder()
	makeUserRouter(db.NewMemoryStateStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/ghost/alerts", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
