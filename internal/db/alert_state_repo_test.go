package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weatheralert/internal/types"
)

func firedStateRow() []any {
	targetDate := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	targetAt := time.Date(2026, 10, 14, 5, 0, 0, 0, time.UTC)
	firedAt := time.Date(2026, 10, 14, 5, 3, 0, 0, time.UTC)
	digest := make([]byte, types.DigestSize)
	digest[0] = 0xaa
	return []any{
		"u1",
		"forecast_change",
		ptr("2026-10-14"),
		&targetDate,
		&targetAt,
		&firedAt,
		ptr("abc123"),
		digest,
		&targetDate,
		int64(3),
		firedAt,
	}
}

func TestAlertStateRepository_Get_Found(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	fixture := firedStateRow()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"u1", "forecast_change"}).
		Return(&mockRow{scanFn: func(dest ...any) error { return scanAlertStateRow(fixture, dest...) }})

	s, err := repo.Get(context.Background(), "u1", types.AlertKindForecastChange)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, types.AlertKindForecastChange, s.Kind)
	assert.Equal(t, "2026-10-14", s.Target)
	require.NotNil(t, s.TargetDate)
	assert.Equal(t, types.Date{Year: 2026, Month: time.October, Day: 14}, *s.TargetDate)
	assert.Equal(t, "abc123", s.FiredDedupeKey)
	require.NotNil(t, s.LastDigest)
	assert.Equal(t, byte(0xaa), s.LastDigest[0])
	assert.Equal(t, int64(3), s.Version)
	assert.True(t, s.HasFired())
	db.AssertExpectations(t)
}

func TestAlertStateRepository_Get_MissingReturnsIdle(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	s, err := repo.Get(context.Background(), "u1", types.AlertKindDailySummary)
	require.NoError(t, err)
	assert.Equal(t, types.NewAlertState("u1", types.AlertKindDailySummary), s)
	assert.Zero(t, s.Version)
	assert.False(t, s.HasFired())
}

func TestAlertStateRepository_Get_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	_, err := repo.Get(context.Background(), "u1", types.AlertKindDailySummary)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestAlertStateRepository_Get_BadDigestLength(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	fixture := firedStateRow()
	fixture[7] = []byte{1, 2, 3}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error { return scanAlertStateRow(fixture, dest...) }})

	_, err := repo.Get(context.Background(), "u1", types.AlertKindForecastChange)
	assert.Equal(t, types.ErrCodeInternalDB, types.CodeOf(err))
}

func TestAlertStateRepository_CompareAndSet_InsertWhenNew(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	expected := types.NewAlertState("u1", types.AlertKindDailySummary)
	next := expected
	next.Target = "2026-10-14"
	next.FiredDedupeKey = "k"
	firedAt := time.Now().UTC()
	next.LastFiredAt = &firedAt

	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO alert_states") && strings.Contains(sql, "DO NOTHING")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 10 && args[0] == "u1" && args[1] == "daily_summary" && *(args[2].(*string)) == "2026-10-14"
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	ok, err := repo.CompareAndSet(context.Background(), expected, next)
	require.NoError(t, err)
	assert.True(t, ok)
	db.AssertExpectations(t)
}

func TestAlertStateRepository_CompareAndSet_InsertConflict(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	expected := types.NewAlertState("u1", types.AlertKindDailySummary)
	ok, err := repo.CompareAndSet(context.Background(), expected, expected)
	require.NoError(t, err)
	assert.False(t, ok, "a concurrent insert wins")
}

func TestAlertStateRepository_CompareAndSet_UpdateChecksVersion(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	expected := types.NewAlertState("u1", types.AlertKindSunnyPreAlert)
	expected.Version = 4

	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "UPDATE alert_states") && strings.Contains(sql, "version = $11")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 11 && args[10] == int64(4)
	})).Return(pgconn.NewCommandTag("UPDATE 0"), nil).Once()

	ok, err := repo.CompareAndSet(context.Background(), expected, expected)
	require.NoError(t, err)
	assert.False(t, ok, "version moved on: conflict")
	db.AssertExpectations(t)
}

func TestAlertStateRepository_CompareAndSet_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	ok, err := repo.CompareAndSet(context.Background(), types.NewAlertState("u1", types.AlertKindDailySummary), types.AlertState{})
	assert.False(t, ok)
	assert.Equal(t, types.ErrCodeInternalDB, types.CodeOf(err))
}

func TestAlertStateRepository_CompareAndSet_WritesDigestBytes(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	var digest types.Digest
	digest[31] = 7
	date := types.Date{Year: 2026, Month: time.October, Day: 15}
	next := types.NewAlertState("u1", types.AlertKindForecastChange)
	next.LastDigest = &digest
	next.DigestDate = &date

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		raw, ok := args[7].([]byte)
		dd, ok2 := args[8].(*time.Time)
		return ok && ok2 && len(raw) == types.DigestSize && raw[31] == 7 &&
			dd.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	ok, err := repo.CompareAndSet(context.Background(), types.NewAlertState("u1", types.AlertKindForecastChange), next)
	require.NoError(t, err)
	assert.True(t, ok)
	db.AssertExpectations(t)
}

func TestAlertStateRepository_ListByUser(t *testing.T) {
	db := new(mockDBTX)
	repo := NewAlertStateRepository(db)

	rows := newMockRows([][]any{firedStateRow()}, scanAlertStateRow)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{"u1"}).Return(rows, nil)

	states, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, types.AlertKindForecastChange, states[0].Kind)
	assert.True(t, rows.closed)
}
