package types

import (
	"time"
)

// LocationStatus tracks whether a user's location can be forecast.
type LocationStatus string

const (
	LocationStatusActive  LocationStatus = "active"
	LocationStatusInvalid LocationStatus = "invalid"
)

// UserLocation is the read-only view of a user's preferences the scheduler
// evaluates against.
type UserLocation struct {
	UserID            string       `json:"user_id"`
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	Timezone          string       `json:"timezone"`
	LocationName      string       `json:"location_name,omitempty"`
	EnabledAlertKinds AlertKindSet `json:"-"`
}

// Location returns the forecast location for the user.
func (u UserLocation) Location() Location {
	return Location{Latitude: u.Latitude, Longitude: u.Longitude, Timezone: u.Timezone}
}

// LoadLocation resolves the user's IANA time zone.
func (u UserLocation) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || u.Timezone == "" {
		return nil, NewAppError(ErrCodeValidationInvalidTimezone, "unknown timezone: "+u.Timezone, err)
	}
	return loc, nil
}

// Validate checks coordinate ranges and the time zone.
func (u UserLocation) Validate() error {
	if u.UserID == "" {
		return NewAppError(ErrCodeValidationMissingField, "user_id is required", nil)
	}
	if u.Latitude < -90 || u.Latitude > 90 {
		return NewAppError(ErrCodeValidationInvalidLat, "latitude must be between -90 and 90", nil)
	}
	if u.Longitude < -180 || u.Longitude > 180 {
		return NewAppError(ErrCodeValidationInvalidLon, "longitude must be between -180 and 180", nil)
	}
	_, err := u.LoadLocation()
	return err
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a Clock that always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }
