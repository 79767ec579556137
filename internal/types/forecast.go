package types

import (
	"fmt"
	"time"
)

// Location is the point a forecast is requested for.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Key returns a stable identifier for the location, rounded to about 1km so
// nearby users share cached forecasts.
func (l Location) Key() string {
	return fmt.Sprintf("%.2f,%.2f,%s", l.Latitude, l.Longitude, l.Timezone)
}

// HourlyCode is the WMO weather code forecast for one local hour (0-23).
type HourlyCode struct {
	Hour int `json:"hour"`
	Code int `json:"code"`
}

// DayForecast is the normalized forecast for one local calendar day.
type DayForecast struct {
	Date            Date         `json:"date"`
	MaxTempC        float64      `json:"max_temp_c"`
	MinTempC        float64      `json:"min_temp_c"`
	RainProbability float64      `json:"rain_probability"`
	UVIndex         float64      `json:"uv_index"`
	Hourly          []HourlyCode `json:"hourly"`
}

// ForecastSnapshot is one fetch of the forecast for a location.
// It is treated as immutable once constructed.
type ForecastSnapshot struct {
	Location  Location      `json:"location"`
	FetchedAt time.Time     `json:"fetched_at"`
	Days      []DayForecast `json:"days"`
}

// Day returns the forecast for the given local date.
func (s *ForecastSnapshot) Day(d Date) (DayForecast, bool) {
	if s == nil {
		return DayForecast{}, false
	}
	for _, day := range s.Days {
		if day.Date == d {
			return day, true
		}
	}
	return DayForecast{}, false
}

// Covers reports whether the snapshot contains every date in [from, from+days).
func (s *ForecastSnapshot) Covers(from Date, days int) bool {
	for i := 0; i < days; i++ {
		if _, ok := s.Day(from.AddDays(i)); !ok {
			return false
		}
	}
	return true
}
