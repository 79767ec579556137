package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"weatheralert/internal/types"
)

// AlertStateRepository stores one row per (user_id, alert_kind) in
// alert_states. Writes are optimistic: every row carries a version that a
// write must match, and each successful write increments it.
type AlertStateRepository struct {
	db  DBTX
	now func() time.Time
}

// NewAlertStateRepository creates a repository backed by db.
func NewAlertStateRepository(db DBTX) *AlertStateRepository {
	return &AlertStateRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const alertStateColumns = `user_id, alert_kind, target, target_date, target_at, last_fired_at,
	fired_dedupe_key, last_digest, digest_date, version, updated_at`

func scanAlertState(row pgx.Row) (types.AlertState, error) {
	var (
		s          types.AlertState
		kind       string
		target     *string
		targetDate *time.Time
		dedupeKey  *string
		digest     []byte
		digestDate *time.Time
	)
	err := row.Scan(
		&s.UserID,
		&kind,
		&target,
		&targetDate,
		&s.TargetAt,
		&s.LastFiredAt,
		&dedupeKey,
		&digest,
		&digestDate,
		&s.Version,
		&s.UpdatedAt,
	)
	if err != nil {
		return types.AlertState{}, err
	}
	s.Kind = types.AlertKind(kind)
	if target != nil {
		s.Target = *target
	}
	if dedupeKey != nil {
		s.FiredDedupeKey = *dedupeKey
	}
	s.TargetDate = dateFromColumn(targetDate)
	s.DigestDate = dateFromColumn(digestDate)
	if digest != nil {
		var d types.Digest
		if err := d.SetBytes(digest); err != nil {
			return types.AlertState{}, err
		}
		s.LastDigest = &d
	}
	return s, nil
}

// Get returns the stored state, or the default Idle record when the pair has
// never been written.
func (r *AlertStateRepository) Get(ctx context.Context, userID string, kind types.AlertKind) (types.AlertState, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+alertStateColumns+`
		 FROM alert_states
		 WHERE user_id = $1 AND alert_kind = $2`,
		userID,
		string(kind),
	)
	s, err := scanAlertState(row)
	if isNoRows(err) {
		return types.NewAlertState(userID, kind), nil
	}
	if err != nil {
		return types.AlertState{}, types.NewAppError(types.ErrCodeInternalDB, "failed to get alert state", err)
	}
	return s, nil
}

// ListByUser returns every stored state for a user ordered by kind.
func (r *AlertStateRepository) ListByUser(ctx context.Context, userID string) ([]types.AlertState, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+alertStateColumns+`
		 FROM alert_states
		 WHERE user_id = $1
		 ORDER BY alert_kind`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert states", err)
	}
	defer rows.Close()

	out := []types.AlertState{}
	for rows.Next() {
		s, err := scanAlertState(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert state", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert states", err)
	}
	return out, nil
}

// CompareAndSet writes next if the stored row still has expected.Version.
//
// A zero expected version means the caller observed no row, so the write is
// an insert that loses to any concurrent insert:
//
//	INSERT INTO alert_states (...) VALUES (...)
//	ON CONFLICT (user_id, alert_kind) DO NOTHING
//
// Otherwise it is a conditional update:
//
//	UPDATE alert_states SET ..., version = version + 1
//	WHERE user_id = $1 AND alert_kind = $2 AND version = $expected
//
// Zero rows affected in either case is a conflict and returns false.
func (r *AlertStateRepository) CompareAndSet(ctx context.Context, expected, next types.AlertState) (bool, error) {
	var digest []byte
	if next.LastDigest != nil {
		digest = next.LastDigest[:]
	}
	var target, dedupeKey *string
	if next.Target != "" {
		target = &next.Target
	}
	if next.FiredDedupeKey != "" {
		dedupeKey = &next.FiredDedupeKey
	}
	updatedAt := next.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	args := []any{
		expected.UserID,
		string(expected.Kind),
		target,
		dateArg(next.TargetDate),
		next.TargetAt,
		next.LastFiredAt,
		dedupeKey,
		digest,
		dateArg(next.DigestDate),
		updatedAt,
	}

	var sql string
	if expected.Version == 0 {
		sql = `INSERT INTO alert_states (` + alertStateColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10)
		 ON CONFLICT (user_id, alert_kind) DO NOTHING`
	} else {
		sql = `UPDATE alert_states
		 SET target = $3, target_date = $4, target_at = $5, last_fired_at = $6,
		     fired_dedupe_key = $7, last_digest = $8, digest_date = $9,
		     updated_at = $10, version = version + 1
		 WHERE user_id = $1 AND alert_kind = $2 AND version = $11`
		args = append(args, expected.Version)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to write alert state", err)
	}
	return tag.RowsAffected() > 0, nil
}
