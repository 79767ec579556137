package alerts

import (
	"sort"

	"weatheralert/internal/types"
)

// Window is a run of sunny hours on one local day. EndHour is exclusive.
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Hours returns the window length.
func (w Window) Hours() int {
	return w.EndHour - w.StartHour
}

// FindWindows returns the maximal runs of consecutive hours whose code is in
// sunny, dropping runs shorter than minHours. A missing hour breaks a run.
// Windows never cross into the next day and are ordered by start hour.
func FindWindows(day types.DayForecast, sunny CodeSet, minHours int) []Window {
	hours := make([]types.HourlyCode, len(day.Hourly))
	copy(hours, day.Hourly)
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })

	var windows []Window
	start, prev := -1, -1
	flush := func() {
		if start >= 0 && prev+1-start >= minHours {
			windows = append(windows, Window{StartHour: start, EndHour: prev + 1})
		}
		start = -1
	}

	for _, h := range hours {
		if !sunny.Contains(h.Code) {
			flush()
			continue
		}
		if start >= 0 && h.Hour != prev+1 {
			flush()
		}
		if start < 0 {
			start = h.Hour
		}
		prev = h.Hour
	}
	flush()

	return windows
}
