package types

import "time"

// UmbrellaAdvice is the rain guidance attached to a daily summary.
type UmbrellaAdvice string

const (
	UmbrellaNone     UmbrellaAdvice = ""
	UmbrellaConsider UmbrellaAdvice = "consider"
	UmbrellaTake     UmbrellaAdvice = "take"
)

// SunscreenAdvice is the UV guidance attached to a daily summary.
type SunscreenAdvice string

const (
	SunscreenNone     SunscreenAdvice = ""
	SunscreenModerate SunscreenAdvice = "moderate"
	SunscreenHigh     SunscreenAdvice = "high"
)

// WeatherClass is the coarse category a WMO weather code falls into.
type WeatherClass string

const (
	WeatherClear        WeatherClass = "clear"
	WeatherPartlyCloudy WeatherClass = "partly_cloudy"
	WeatherOvercast     WeatherClass = "overcast"
	WeatherFog          WeatherClass = "fog"
	WeatherDrizzle      WeatherClass = "drizzle"
	WeatherRain         WeatherClass = "rain"
	WeatherSnow         WeatherClass = "snow"
	WeatherThunderstorm WeatherClass = "thunderstorm"
	WeatherUnknown      WeatherClass = "unknown"
)

// NotificationPayload holds the structured fields a message renderer needs.
// It never carries rendered text.
type NotificationPayload struct {
	LocationName    string          `json:"location_name,omitempty"`
	Date            Date            `json:"date"`
	WindowStart     *time.Time      `json:"window_start,omitempty"`
	WindowStartHour *int            `json:"window_start_hour,omitempty"`
	WindowEndHour   *int            `json:"window_end_hour,omitempty"`
	MaxTempC        float64         `json:"max_temp_c"`
	MinTempC        float64         `json:"min_temp_c"`
	RainProbability float64         `json:"rain_probability"`
	UVIndex         float64         `json:"uv_index"`
	Condition       WeatherClass    `json:"condition"`
	Umbrella        UmbrellaAdvice  `json:"umbrella,omitempty"`
	Sunscreen       SunscreenAdvice `json:"sunscreen,omitempty"`
}

// NotificationRequest is one notification the scheduler decided to emit.
// DedupeKey is unique per eligible event and stable across re-evaluation.
type NotificationRequest struct {
	UserID    string              `json:"user_id"`
	Kind      AlertKind           `json:"alert_kind"`
	DedupeKey string              `json:"dedupe_key"`
	Payload   NotificationPayload `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
}
