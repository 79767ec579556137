package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"weatheralert/internal/types"
)

var (
	testToday    = types.Date{Year: 2026, Month: time.October, Day: 14}
	testTomorrow = testToday.AddDays(1)
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func testUser() types.UserLocation {
	return types.UserLocation{
		UserID:       "u1",
		Latitude:     55.75,
		Longitude:    37.62,
		Timezone:     "Europe/Moscow",
		LocationName: "Moscow",
		EnabledAlertKinds: types.NewAlertKindSet(
			types.AlertKindDailySummary,
			types.AlertKindSunnyPreAlert,
			types.AlertKindForecastChange,
		),
	}
}

// dayWithSunny builds a 24 hour day that is clear for hours [from, to) and
// overcast otherwise.
func dayWithSunny(d types.Date, from, to int) types.DayForecast {
	day := types.DayForecast{Date: d, MaxTempC: 12, MinTempC: 4, RainProbability: 20, UVIndex: 2}
	for h := 0; h < 24; h++ {
		code := 3
		if h >= from && h < to {
			code = 0
		}
		day.Hourly = append(day.Hourly, types.HourlyCode{Hour: h, Code: code})
	}
	return day
}

func testSnapshot() *types.ForecastSnapshot {
	return &types.ForecastSnapshot{
		Location: testUser().Location(),
		Days: []types.DayForecast{
			dayWithSunny(testToday, 10, 13),
			dayWithSunny(testTomorrow, 0, 0),
		},
	}
}

// memStore is a minimal version-checked StateStore.
type memStore struct {
	mu      sync.Mutex
	records map[string]types.AlertState
	gets    int
	writes  int
	getErr  error
	casErr  error
	// beforeCAS runs after the version check lock is released but before
	// the write, to inject a concurrent writer.
	beforeCAS func()
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]types.AlertState)}
}

func (s *memStore) key(userID string, kind types.AlertKind) string {
	return userID + "|" + string(kind)
}

func (s *memStore) Get(_ context.Context, userID string, kind types.AlertKind) (types.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return types.AlertState{}, s.getErr
	}
	if st, ok := s.records[s.key(userID, kind)]; ok {
		return st, nil
	}
	return types.NewAlertState(userID, kind), nil
}

func (s *memStore) CompareAndSet(_ context.Context, expected, next types.AlertState) (bool, error) {
	if s.beforeCAS != nil {
		hook := s.beforeCAS
		s.beforeCAS = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.casErr != nil {
		return false, s.casErr
	}
	k := s.key(expected.UserID, expected.Kind)
	if s.records[k].Version != expected.Version {
		return false, nil
	}
	next.Version = expected.Version + 1
	s.records[k] = next
	s.writes++
	return true, nil
}
