package alerts

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"weatheralert/internal/types"
)

// TimeOfDay is a local wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a "HH:MM" string. The input must be exactly five
// characters; trailing content is rejected.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("expected format HH:MM, got %q", s)
	}
	var hour, minute int
	n, err := fmt.Sscanf(s, "%d:%d", &hour, &minute)
	if err != nil || n != 2 {
		return TimeOfDay{}, fmt.Errorf("expected format HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("minute %d out of range [0,59]", minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Config holds every threshold the alert rules use.
type Config struct {
	SunnyCodes                  CodeSet
	SunnyMinWindowHours         int
	SunnyLeadTime               time.Duration
	DailySummaryAt              TimeOfDay
	ForecastChangeLookaheadDays int
}

// DefaultConfig returns the stock thresholds. Codes 0 and 1 (clear, mainly
// clear) count as sunny.
func DefaultConfig() Config {
	return Config{
		SunnyCodes:                  NewCodeSet(0, 1),
		SunnyMinWindowHours:         2,
		SunnyLeadTime:               time.Hour,
		DailySummaryAt:              TimeOfDay{Hour: 8},
		ForecastChangeLookaheadDays: 1,
	}
}

// Validate rejects configurations the rules cannot evaluate.
func (c Config) Validate() error {
	var errs []error
	if len(c.SunnyCodes) == 0 {
		errs = append(errs, errors.New("sunny codes must not be empty"))
	}
	if c.SunnyMinWindowHours < 1 || c.SunnyMinWindowHours > 24 {
		errs = append(errs, fmt.Errorf("sunny min window hours %d out of range [1,24]", c.SunnyMinWindowHours))
	}
	if c.SunnyLeadTime <= 0 {
		errs = append(errs, fmt.Errorf("sunny lead time must be positive, got %s", c.SunnyLeadTime))
	}
	if c.DailySummaryAt.Hour < 0 || c.DailySummaryAt.Hour > 23 || c.DailySummaryAt.Minute < 0 || c.DailySummaryAt.Minute > 59 {
		errs = append(errs, fmt.Errorf("daily summary time %s invalid", c.DailySummaryAt))
	}
	if c.ForecastChangeLookaheadDays < 1 || c.ForecastChangeLookaheadDays > 14 {
		errs = append(errs, fmt.Errorf("forecast change lookahead %d out of range [1,14]", c.ForecastChangeLookaheadDays))
	}
	return errors.Join(errs...)
}

// RequiredDays is how many consecutive local days, starting today, a snapshot
// must contain for every rule to be evaluable.
func (c Config) RequiredDays() int {
	return max(2, c.ForecastChangeLookaheadDays+1)
}

// Target is the event an alert kind currently qualifies to fire for.
// At anchors the event in time and orders targets of the same kind.
type Target struct {
	Identity string
	Date     types.Date
	At       time.Time
	Payload  types.NotificationPayload
}

// Observation is a forecast digest recorded without firing.
type Observation struct {
	Date   types.Date
	Digest types.Digest
}

// Eligibility is the result of evaluating one rule against a forecast.
type Eligibility struct {
	Target      *Target
	Observation *Observation
}

// Rules computes eligible targets from a forecast.
type Rules struct {
	cfg Config
}

// NewRules validates cfg and returns the rule set.
func NewRules(cfg Config) (*Rules, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid alert rules config: %w", err)
	}
	return &Rules{cfg: cfg}, nil
}

// Config returns the thresholds in use.
func (r *Rules) Config() Config {
	return r.cfg
}

// Eligible evaluates kind for user at now. loc is the user's zone; prior is
// the stored state, which only forecast change consults.
func (r *Rules) Eligible(kind types.AlertKind, user types.UserLocation, snap *types.ForecastSnapshot, prior types.AlertState, now time.Time, loc *time.Location) (Eligibility, error) {
	switch kind {
	case types.AlertKindDailySummary:
		return r.dailySummary(user, snap, now.In(loc), loc), nil
	case types.AlertKindSunnyPreAlert:
		return r.sunnyPreAlert(user, snap, now, loc), nil
	case types.AlertKindForecastChange:
		return r.forecastChange(user, snap, prior, now.In(loc), loc), nil
	default:
		return Eligibility{}, types.NewAppError(types.ErrCodeValidationAlertKind, "unknown alert kind: "+string(kind), nil)
	}
}

func (r *Rules) dailySummary(user types.UserLocation, snap *types.ForecastSnapshot, localNow time.Time, loc *time.Location) Eligibility {
	today := types.DateOf(localNow)
	at := today.At(r.cfg.DailySummaryAt.Hour, r.cfg.DailySummaryAt.Minute, loc)
	if localNow.Before(at) {
		return Eligibility{}
	}
	day, ok := snap.Day(today)
	if !ok {
		return Eligibility{}
	}

	payload := dayPayload(user, day)
	payload.Umbrella = UmbrellaFor(day.RainProbability)
	payload.Sunscreen = SunscreenFor(day.UVIndex)

	return Eligibility{Target: &Target{
		Identity: DateIdentity(today),
		Date:     today,
		At:       at,
		Payload:  payload,
	}}
}

// sunnyPreAlert finds the first window, across all forecast days, whose start
// is not yet in the past. It qualifies only once the start is within the lead
// time.
func (r *Rules) sunnyPreAlert(user types.UserLocation, snap *types.ForecastSnapshot, now time.Time, loc *time.Location) Eligibility {
	if snap == nil {
		return Eligibility{}
	}
	days := make([]types.DayForecast, len(snap.Days))
	copy(days, snap.Days)
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	for _, day := range days {
		for _, w := range FindWindows(day, r.cfg.SunnyCodes, r.cfg.SunnyMinWindowHours) {
			start := day.Date.At(w.StartHour, 0, loc)
			if start.Before(now) {
				continue
			}
			if start.Sub(now) > r.cfg.SunnyLeadTime {
				return Eligibility{}
			}

			startHour, endHour := w.StartHour, w.EndHour
			payload := dayPayload(user, day)
			payload.WindowStart = &start
			payload.WindowStartHour = &startHour
			payload.WindowEndHour = &endHour
			payload.Condition = DominantClass(windowHours(day, w))

			return Eligibility{Target: &Target{
				Identity: WindowIdentity(day.Date, w.StartHour),
				Date:     day.Date,
				At:       start,
				Payload:  payload,
			}}
		}
	}
	return Eligibility{}
}

// forecastChange always observes the digest of the lookahead day. It yields a
// target only when a digest for that same day is already stored and differs;
// the first observation of a day is a baseline.
func (r *Rules) forecastChange(user types.UserLocation, snap *types.ForecastSnapshot, prior types.AlertState, localNow time.Time, loc *time.Location) Eligibility {
	target := types.DateOf(localNow).AddDays(r.cfg.ForecastChangeLookaheadDays)
	day, ok := snap.Day(target)
	if !ok {
		return Eligibility{}
	}

	digest := Digest(day, r.cfg.SunnyCodes)
	e := Eligibility{Observation: &Observation{Date: target, Digest: digest}}

	if prior.DigestDate == nil || *prior.DigestDate != target || prior.LastDigest == nil {
		return e
	}
	if !Changed(*prior.LastDigest, digest) {
		return e
	}

	payload := dayPayload(user, day)
	payload.Umbrella = UmbrellaFor(day.RainProbability)
	payload.Sunscreen = SunscreenFor(day.UVIndex)
	e.Target = &Target{
		Identity: DateIdentity(target),
		Date:     target,
		At:       target.At(0, 0, loc),
		Payload:  payload,
	}
	return e
}

func dayPayload(user types.UserLocation, day types.DayForecast) types.NotificationPayload {
	return types.NotificationPayload{
		LocationName:    user.LocationName,
		Date:            day.Date,
		MaxTempC:        day.MaxTempC,
		MinTempC:        day.MinTempC,
		RainProbability: day.RainProbability,
		UVIndex:         day.UVIndex,
		Condition:       DominantClass(day),
	}
}

func windowHours(day types.DayForecast, w Window) types.DayForecast {
	var sub types.DayForecast
	for _, h := range day.Hourly {
		if h.Hour >= w.StartHour && h.Hour < w.EndHour {
			sub.Hourly = append(sub.Hourly, h)
		}
	}
	return sub
}

// UmbrellaFor maps a rain probability to umbrella advice.
func UmbrellaFor(rain float64) types.UmbrellaAdvice {
	switch {
	case rain > 60:
		return types.UmbrellaTake
	case rain > 30:
		return types.UmbrellaConsider
	default:
		return types.UmbrellaNone
	}
}

// SunscreenFor maps a UV index to sunscreen advice.
func SunscreenFor(uv float64) types.SunscreenAdvice {
	switch {
	case uv >= 6:
		return types.SunscreenHigh
	case uv >= 3:
		return types.SunscreenModerate
	default:
		return types.SunscreenNone
	}
}
