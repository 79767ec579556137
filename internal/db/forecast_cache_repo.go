package db

import (
	"context"
	"time"

	"weatheralert/internal/types"
)

// ForecastCacheRepository stores encoded forecast snapshots keyed by
// location so users at the same place share one upstream fetch.
type ForecastCacheRepository struct {
	db DBTX
}

// NewForecastCacheRepository creates a ForecastCacheRepository backed by db.
func NewForecastCacheRepository(db DBTX) *ForecastCacheRepository {
	return &ForecastCacheRepository{db: db}
}

// Get returns the cached payload if present and not expired at now.
func (r *ForecastCacheRepository) Get(ctx context.Context, locationKey string, now time.Time) ([]byte, bool, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT payload FROM forecast_cache
		 WHERE location_key = $1 AND expires_at > $2`,
		locationKey,
		now,
	).Scan(&payload)
	if isNoRows(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to read forecast cache", err)
	}
	return payload, true, nil
}

// Put upserts the payload for the location.
func (r *ForecastCacheRepository) Put(ctx context.Context, locationKey string, payload []byte, fetchedAt, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO forecast_cache (location_key, payload, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (location_key) DO UPDATE SET
		   payload = EXCLUDED.payload,
		   fetched_at = EXCLUDED.fetched_at,
		   expires_at = EXCLUDED.expires_at`,
		locationKey,
		payload,
		fetchedAt,
		expiresAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write forecast cache", err)
	}
	return nil
}

// DeleteExpired removes entries that expired before now and returns how many
// were removed.
func (r *ForecastCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM forecast_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune forecast cache", err)
	}
	return tag.RowsAffected(), nil
}
