package db

import (
	"context"

	"weatheralert/internal/types"
)

// Schema creates the tables the scheduler reads and writes. Statements are
// idempotent. The users table is normally provisioned by the preferences
// service; it is included so a fresh database is usable on its own.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id             TEXT PRIMARY KEY,
	latitude            DOUBLE PRECISION NOT NULL,
	longitude           DOUBLE PRECISION NOT NULL,
	timezone            TEXT NOT NULL,
	location_name       TEXT,
	enabled_alert_kinds TEXT[] NOT NULL DEFAULT '{}',
	location_status     TEXT NOT NULL DEFAULT 'active',
	location_error      TEXT,
	location_error_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS alert_states (
	user_id          TEXT NOT NULL,
	alert_kind       TEXT NOT NULL,
	target           TEXT,
	target_date      DATE,
	target_at        TIMESTAMPTZ,
	last_fired_at    TIMESTAMPTZ,
	fired_dedupe_key TEXT,
	last_digest      BYTEA,
	digest_date      DATE,
	version          BIGINT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, alert_kind),
	CHECK ((last_fired_at IS NULL) = (fired_dedupe_key IS NULL))
);

CREATE TABLE IF NOT EXISTS forecast_cache (
	location_key TEXT PRIMARY KEY,
	payload      BYTEA NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS cycle_history (
	cycle_id       TEXT PRIMARY KEY,
	reference_time TIMESTAMPTZ NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ,
	status         TEXT NOT NULL,
	report         JSONB,
	error          TEXT
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to apply schema", err)
	}
	return nil
}
