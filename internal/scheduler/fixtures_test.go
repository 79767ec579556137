package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weatheralert/internal/alerts"
	"weatheralert/internal/types"
)

var (
	testToday    = types.Date{Year: 2026, Month: time.October, Day: 14}
	testTomorrow = testToday.AddDays(1)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

// localTime returns hh:mm on testToday in Moscow.
func localTime(t *testing.T, hour, minute int) time.Time {
	return testToday.At(hour, minute, moscow(t))
}

func newUser(id string, lat float64, kinds ...types.AlertKind) types.UserLocation {
	return types.UserLocation{
		UserID:            id,
		Latitude:          lat,
		Longitude:         37.62,
		Timezone:          "Europe/Moscow",
		LocationName:      "Moscow",
		EnabledAlertKinds: types.NewAlertKindSet(kinds...),
	}
}

// sunnyDay is clear for hours [from, to) and overcast otherwise.
func sunnyDay(d types.Date, from, to int) types.DayForecast {
	day := types.DayForecast{Date: d, MaxTempC: 14, MinTempC: 6, RainProbability: 10, UVIndex: 3}
	for h := 0; h < 24; h++ {
		code := 3
		if h >= from && h < to {
			code = 0
		}
		day.Hourly = append(day.Hourly, types.HourlyCode{Hour: h, Code: code})
	}
	return day
}

func snapshotFor(loc types.Location, days ...types.DayForecast) *types.ForecastSnapshot {
	return &types.ForecastSnapshot{Location: loc, FetchedAt: time.Date(2026, 10, 14, 5, 0, 0, 0, time.UTC), Days: days}
}

// defaultSnapshot has a sunny window 10:00-13:00 today and none tomorrow.
func defaultSnapshot(loc types.Location) *types.ForecastSnapshot {
	return snapshotFor(loc, sunnyDay(testToday, 10, 13), sunnyDay(testTomorrow, 0, 0))
}

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	rules, err := alerts.NewRules(alerts.DefaultConfig())
	require.NoError(t, err)
	return NewEvaluator(rules, nil, testLogger())
}

// fakeSource serves forecasts through fetch, counting calls.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error)
}

func (s *fakeSource) Fetch(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fetch == nil {
		return defaultSnapshot(loc), nil
	}
	return s.fetch(ctx, loc)
}

// recordingDispatcher keeps every request it was handed.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []types.NotificationRequest
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, req types.NotificationRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, req)
	return d.err
}

func (d *recordingDispatcher) keys() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int)
	for _, r := range d.sent {
		out[r.DedupeKey]++
	}
	return out
}

type recordingMetrics struct {
	mu      sync.Mutex
	reports []types.CycleReport
}

func (m *recordingMetrics) RecordCycle(_ context.Context, r types.CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
}

type recordingHistory struct {
	mu       sync.Mutex
	started  []string
	finished map[string]error
}

func (h *recordingHistory) Start(_ context.Context, cycleID string, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, cycleID)
	return nil
}

func (h *recordingHistory) Finish(_ context.Context, cycleID string, _ any, cycleErr error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished == nil {
		h.finished = make(map[string]error)
	}
	h.finished[cycleID] = cycleErr
	return nil
}

// brokenStore fails every read.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string, types.AlertKind) (types.AlertState, error) {
	return types.AlertState{}, errors.New("connection refused")
}

func (brokenStore) CompareAndSet(context.Context, types.AlertState, types.AlertState) (bool, error) {
	return false, errors.New("connection refused")
}

// failingDirectory fails to list users.
type failingDirectory struct{}

func (failingDirectory) ListActiveUsers(context.Context) ([]types.UserLocation, error) {
	return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list users", errors.New("timeout"))
}

func (failingDirectory) GetUser(context.Context, string) (types.UserLocation, error) {
	return types.UserLocation{}, errors.New("unused")
}

func (failingDirectory) RecordLocationFailure(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}
