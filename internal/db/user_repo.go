package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"weatheralert/internal/types"
)

// UserRepository reads user locations and preferences from the users table.
// The preferences service owns the table; the scheduler only reads it and
// records location failures.
type UserRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewUserRepository creates a UserRepository backed by db.
func NewUserRepository(db DBTX, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `user_id, latitude, longitude, timezone, location_name, enabled_alert_kinds`

func (r *UserRepository) scanUser(ctx context.Context, row pgx.Row) (types.UserLocation, error) {
	var (
		u            types.UserLocation
		locationName *string
		kinds        []string
	)
	if err := row.Scan(&u.UserID, &u.Latitude, &u.Longitude, &u.Timezone, &locationName, &kinds); err != nil {
		return types.UserLocation{}, err
	}
	if locationName != nil {
		u.LocationName = *locationName
	}

	u.EnabledAlertKinds = make(types.AlertKindSet, len(kinds))
	for _, k := range kinds {
		kind, err := types.ParseAlertKind(k)
		if err != nil {
			// Unknown kinds may come from a newer preferences service.
			r.logger.WarnContext(ctx, "ignoring unknown alert kind", "user_id", u.UserID, "alert_kind", k)
			continue
		}
		u.EnabledAlertKinds[kind] = struct{}{}
	}
	return u, nil
}

// ListActiveUsers returns users with a usable location and at least one
// enabled alert kind.
func (r *UserRepository) ListActiveUsers(ctx context.Context) ([]types.UserLocation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE location_status = 'active'
		   AND cardinality(enabled_alert_kinds) > 0
		 ORDER BY user_id`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list active users", err)
	}
	defer rows.Close()

	users := []types.UserLocation{}
	for rows.Next() {
		u, err := r.scanUser(ctx, rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating users", err)
	}
	return users, nil
}

// GetUser returns one user regardless of location status.
func (r *UserRepository) GetUser(ctx context.Context, userID string) (types.UserLocation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`,
		userID,
	)
	u, err := r.scanUser(ctx, row)
	if isNoRows(err) {
		return types.UserLocation{}, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", err)
	}
	if err != nil {
		return types.UserLocation{}, types.NewAppError(types.ErrCodeInternalDB, "failed to get user", err)
	}
	return u, nil
}

// RecordLocationFailure marks the user's location invalid so it is no longer
// polled. It returns true only for the first failure; repeated calls leave
// the original diagnostic in place. The preferences service resets the status
// when the user changes their location.
func (r *UserRepository) RecordLocationFailure(ctx context.Context, userID string, reason string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET location_status = 'invalid', location_error = $2, location_error_at = $3
		 WHERE user_id = $1 AND location_status <> 'invalid'`,
		userID,
		reason,
		at,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to record location failure", err)
	}
	return tag.RowsAffected() > 0, nil
}
