package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"weatheralert/internal/types"
)

// MemoryStateStore is an in-process alert state store with the same
// version semantics as AlertStateRepository. It backs local runs and tests.
type MemoryStateStore struct {
	mu      sync.Mutex
	records map[memoryKey]types.AlertState
}

type memoryKey struct {
	userID string
	kind   types.AlertKind
}

// NewMemoryStateStore returns an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{records: make(map[memoryKey]types.AlertState)}
}

// Get returns the stored record or the default Idle state.
func (s *MemoryStateStore) Get(_ context.Context, userID string, kind types.AlertKind) (types.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.records[memoryKey{userID, kind}]; ok {
		return st, nil
	}
	return types.NewAlertState(userID, kind), nil
}

// CompareAndSet stores next when the current version equals expected's.
func (s *MemoryStateStore) CompareAndSet(_ context.Context, expected, next types.AlertState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey{expected.UserID, expected.Kind}
	current, exists := s.records[k]
	if (!exists && expected.Version != 0) || (exists && current.Version != expected.Version) {
		return false, nil
	}
	next.UserID, next.Kind = expected.UserID, expected.Kind
	next.Version = expected.Version + 1
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}
	s.records[k] = next
	return true, nil
}

// ListByUser returns the user's records ordered by kind.
func (s *MemoryStateStore) ListByUser(_ context.Context, userID string) ([]types.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.AlertState{}
	for k, st := range s.records {
		if k.userID == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// MemoryUserDirectory serves a fixed set of users, for local runs.
type MemoryUserDirectory struct {
	mu      sync.Mutex
	users   []types.UserLocation
	invalid map[string]string
}

// NewMemoryUserDirectory returns a directory over users.
func NewMemoryUserDirectory(users []types.UserLocation) *MemoryUserDirectory {
	return &MemoryUserDirectory{users: users, invalid: make(map[string]string)}
}

// ListActiveUsers returns users not marked invalid.
func (d *MemoryUserDirectory) ListActiveUsers(_ context.Context) ([]types.UserLocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.UserLocation, 0, len(d.users))
	for _, u := range d.users {
		if _, bad := d.invalid[u.UserID]; !bad && len(u.EnabledAlertKinds) > 0 {
			out = append(out, u)
		}
	}
	return out, nil
}

// GetUser returns one user.
func (d *MemoryUserDirectory) GetUser(_ context.Context, userID string) (types.UserLocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return types.UserLocation{}, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
}

// RecordLocationFailure marks the user invalid; only the first call reports true.
func (d *MemoryUserDirectory) RecordLocationFailure(_ context.Context, userID string, reason string, _ time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, already := d.invalid[userID]; already {
		return false, nil
	}
	d.invalid[userID] = reason
	return true, nil
}
