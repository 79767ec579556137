package forecasts

import (
	"context"
	"log/slog"
	"time"

	"weatheralert/internal/types"
)

// Source fetches forecast snapshots.
type Source interface {
	Fetch(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error)
}

// CacheStore persists encoded snapshots. Implemented by
// db.ForecastCacheRepository.
type CacheStore interface {
	Get(ctx context.Context, locationKey string, now time.Time) ([]byte, bool, error)
	Put(ctx context.Context, locationKey string, payload []byte, fetchedAt, expiresAt time.Time) error
}

// CachedSource fronts a Source with a TTL cache keyed by rounded location.
// Cache failures never fail a fetch; they fall through to the upstream.
type CachedSource struct {
	upstream Source
	store    CacheStore
	codec    *Codec
	ttl      time.Duration
	clock    types.Clock
	logger   *slog.Logger
}

// NewCachedSource wraps upstream. A zero ttl disables caching.
func NewCachedSource(upstream Source, store CacheStore, codec *Codec, ttl time.Duration, clock types.Clock, logger *slog.Logger) *CachedSource {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{upstream: upstream, store: store, codec: codec, ttl: ttl, clock: clock, logger: logger}
}

// Fetch returns a cached snapshot when one is fresh, otherwise fetches and
// stores it.
func (s *CachedSource) Fetch(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error) {
	if s.ttl <= 0 {
		return s.upstream.Fetch(ctx, loc)
	}

	key := loc.Key()
	now := s.clock.Now()

	if data, ok, err := s.store.Get(ctx, key, now); err != nil {
		s.logger.WarnContext(ctx, "forecast cache read failed", "location", key, "error", err)
	} else if ok {
		snap, err := s.codec.Decode(data)
		if err == nil {
			return snap, nil
		}
		s.logger.WarnContext(ctx, "discarding unreadable cache entry", "location", key, "error", err)
	}

	snap, err := s.upstream.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}

	data, err := s.codec.Encode(snap)
	if err != nil {
		s.logger.WarnContext(ctx, "forecast cache encode failed", "location", key, "error", err)
		return snap, nil
	}
	if err := s.store.Put(ctx, key, data, snap.FetchedAt, now.Add(s.ttl)); err != nil {
		s.logger.WarnContext(ctx, "forecast cache write failed", "location", key, "error", err)
	}
	return snap, nil
}
