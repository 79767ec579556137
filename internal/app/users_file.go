package app

import (
	"encoding/json"
	"fmt"
	"os"

	"weatheralert/internal/types"
)

// localUser is one entry of LOCAL_USERS_FILE:
//
//	[{"user_id":"u1","latitude":55.75,"longitude":37.62,
//	  "timezone":"Europe/Moscow","alert_kinds":["daily_summary"]}]
type localUser struct {
	UserID       string   `json:"user_id"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Timezone     string   `json:"timezone"`
	LocationName string   `json:"location_name"`
	AlertKinds   []string `json:"alert_kinds"`
}

// LoadUsersFile reads the seed users for the in-memory directory. An empty
// path yields no users.
func LoadUsersFile(path string) ([]types.UserLocation, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}
	return ParseUsers(raw)
}

// ParseUsers decodes and validates a users file body.
func ParseUsers(raw []byte) ([]types.UserLocation, error) {
	var entries []localUser
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	users := make([]types.UserLocation, 0, len(entries))
	for i, e := range entries {
		kinds, err := types.ParseAlertKindSet(e.AlertKinds)
		if err != nil {
			return nil, fmt.Errorf("users file entry %d: %w", i, err)
		}
		u := types.UserLocation{
			UserID:            e.UserID,
			Latitude:          e.Latitude,
			Longitude:         e.Longitude,
			Timezone:          e.Timezone,
			LocationName:      e.LocationName,
			EnabledAlertKinds: kinds,
		}
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("users file entry %d: %w", i, err)
		}
		if _, dup := seen[u.UserID]; dup {
			return nil, fmt.Errorf("users file entry %d: duplicate user_id %q", i, u.UserID)
		}
		seen[u.UserID] = struct{}{}
		users = append(users, u)
	}
	return users, nil
}
