package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

// mockRows yields each entry of data through scanFn.
type mockRows struct {
	data   [][]any
	idx    int
	closed bool
	scanFn func(row []any, dest ...any) error
	errVal error
}

func newMockRows(data [][]any, scanFn func(row []any, dest ...any) error) *mockRows {
	return &mockRows{data: data, idx: -1, scanFn: scanFn}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error {
	return r.scanFn(r.data[r.idx], dest...)
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// scanAlertStateRow fills the alertStateColumns scan targets from a fixture
// row of the same order.
func scanAlertStateRow(row []any, dest ...any) error {
	*(dest[0].(*string)) = row[0].(string)
	*(dest[1].(*string)) = row[1].(string)
	*(dest[2].(**string)) = row[2].(*string)
	*(dest[3].(**time.Time)) = row[3].(*time.Time)
	*(dest[4].(**time.Time)) = row[4].(*time.Time)
	*(dest[5].(**time.Time)) = row[5].(*time.Time)
	*(dest[6].(**string)) = row[6].(*string)
	*(dest[7].(*[]byte)) = row[7].([]byte)
	*(dest[8].(**time.Time)) = row[8].(*time.Time)
	*(dest[9].(*int64)) = row[9].(int64)
	*(dest[10].(*time.Time)) = row[10].(time.Time)
	return nil
}

func ptr[T any](v T) *T { return &v }
