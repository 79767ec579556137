// Package db provides PostgreSQL-backed stores for alert state, users,
// cached forecasts and cycle history. All repositories accept a DBTX that is
// satisfied by both *pgxpool.Pool and pgx.Tx.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"weatheralert/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool parses url, applies the pool settings and verifies connectivity.
func NewPool(ctx context.Context, url string, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "invalid database url", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, types.NewAppError(types.ErrCodeInternalDB, "database unreachable", err)
	}
	return pool, nil
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProbe reports database reachability for the ops health endpoint.
type HealthProbe struct {
	db Pinger
}

// NewHealthProbe wraps a pool for health checks.
func NewHealthProbe(db Pinger) *HealthProbe {
	return &HealthProbe{db: db}
}

// Name identifies the probe in health output.
func (p *HealthProbe) Name() string { return "database" }

// Check pings the database.
func (p *HealthProbe) Check(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// dateArg converts a nullable Date to a value for a DATE column.
func dateArg(d *types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.At(0, 0, time.UTC)
	return &t
}

func dateFromColumn(t *time.Time) *types.Date {
	if t == nil {
		return nil
	}
	d := types.DateOf(t.UTC())
	return &d
}
