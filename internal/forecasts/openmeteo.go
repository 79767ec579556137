// Package forecasts fetches forecasts from Open-Meteo and normalizes them
// into types.ForecastSnapshot, with an optional Postgres-backed cache.
package forecasts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weatheralert/internal/external"
	"weatheralert/internal/types"
)

// DefaultOpenMeteoURL is the public forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// HTTPDoer is satisfied by *external.BaseClient.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPDoer = (*external.BaseClient)(nil)

// OpenMeteoClient fetches daily and hourly forecasts for a location.
type OpenMeteoClient struct {
	http    HTTPDoer
	baseURL string
	days    int
	clock   types.Clock
	logger  *slog.Logger
}

// OpenMeteoConfig configures OpenMeteoClient.
type OpenMeteoConfig struct {
	BaseURL string
	// ForecastDays is how many local days to request, starting today.
	ForecastDays int
}

// NewOpenMeteoClient creates a client. A nil clock uses the real clock.
func NewOpenMeteoClient(doer HTTPDoer, cfg OpenMeteoConfig, clock types.Clock, logger *slog.Logger) *OpenMeteoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenMeteoURL
	}
	if cfg.ForecastDays < 2 {
		cfg.ForecastDays = 2
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoClient{http: doer, baseURL: cfg.BaseURL, days: cfg.ForecastDays, clock: clock, logger: logger}
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Hourly   struct {
		Time        []string `json:"time"`
		WeatherCode []*int   `json:"weather_code"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string   `json:"time"`
		Temperature2mMax            []*float64 `json:"temperature_2m_max"`
		Temperature2mMin            []*float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
		UVIndexMax                  []*float64 `json:"uv_index_max"`
	} `json:"daily"`
}

type openMeteoError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Fetch requests the forecast for loc in the location's own time zone.
// HTTP 400 (invalid coordinates or zone) is permanent; upstream and network
// failures are transient.
func (c *OpenMeteoClient) Fetch(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	q.Set("hourly", "weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,uv_index_max")
	q.Set("timezone", loc.Timezone)
	q.Set("forecast_days", strconv.Itoa(c.days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build forecast request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeFetchTransient, "forecast request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		var e openMeteoError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(body, &e)
		return nil, types.NewAppError(types.ErrCodeFetchPermanent, "forecast location rejected: "+e.Reason, nil).
			WithDetails(map[string]any{"location": loc.Key()})
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewAppError(types.ErrCodeFetchTransient,
			fmt.Sprintf("forecast request returned %d", resp.StatusCode), nil)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeFetchTransient, "failed to decode forecast response", err)
	}

	snap, err := normalize(loc, payload, c.clock.Now())
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "forecast fetched", "location", loc.Key(), "days", len(snap.Days))
	return snap, nil
}

// normalize joins the daily and hourly series by local date. Hourly time
// stamps are local wall-clock times in the requested zone ("2006-01-02T15:04").
// Days with a missing daily value are dropped; hours with a null code are
// skipped.
func normalize(loc types.Location, p openMeteoResponse, fetchedAt time.Time) (*types.ForecastSnapshot, error) {
	if len(p.Hourly.Time) != len(p.Hourly.WeatherCode) {
		return nil, types.NewAppError(types.ErrCodeFetchTransient, "hourly series length mismatch", nil)
	}

	hourly := make(map[types.Date][]types.HourlyCode)
	for i, ts := range p.Hourly.Time {
		if p.Hourly.WeatherCode[i] == nil {
			continue
		}
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeFetchTransient, "invalid hourly timestamp "+ts, err)
		}
		d := types.DateOf(t)
		hourly[d] = append(hourly[d], types.HourlyCode{Hour: t.Hour(), Code: *p.Hourly.WeatherCode[i]})
	}

	d := p.Daily
	n := len(d.Time)
	if len(d.Temperature2mMax) != n || len(d.Temperature2mMin) != n ||
		len(d.PrecipitationProbabilityMax) != n || len(d.UVIndexMax) != n {
		return nil, types.NewAppError(types.ErrCodeFetchTransient, "daily series length mismatch", nil)
	}

	snap := &types.ForecastSnapshot{Location: loc, FetchedAt: fetchedAt}
	for i, ds := range d.Time {
		date, err := types.ParseDate(ds)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeFetchTransient, "invalid daily date", err)
		}
		if d.Temperature2mMax[i] == nil || d.Temperature2mMin[i] == nil ||
			d.PrecipitationProbabilityMax[i] == nil || d.UVIndexMax[i] == nil {
			continue
		}
		snap.Days = append(snap.Days, types.DayForecast{
			Date:            date,
			MaxTempC:        *d.Temperature2mMax[i],
			MinTempC:        *d.Temperature2mMin[i],
			RainProbability: *d.PrecipitationProbabilityMax[i],
			UVIndex:         max(0, *d.UVIndexMax[i]),
			Hourly:          hourly[date],
		})
	}
	return snap, nil
}
