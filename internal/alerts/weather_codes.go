package alerts

import (
	"sort"
	"strconv"
	"strings"

	"weatheralert/internal/types"
)

// ClassifyCode maps a WMO weather interpretation code to its coarse class.
func ClassifyCode(code int) types.WeatherClass {
	switch {
	case code == 0:
		return types.WeatherClear
	case code == 1 || code == 2:
		return types.WeatherPartlyCloudy
	case code == 3:
		return types.WeatherOvercast
	case code == 45 || code == 48:
		return types.WeatherFog
	case code >= 51 && code <= 57:
		return types.WeatherDrizzle
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return types.WeatherRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return types.WeatherSnow
	case code >= 95 && code <= 99:
		return types.WeatherThunderstorm
	default:
		return types.WeatherUnknown
	}
}

// classSeverity orders classes for tie-breaking; higher is more severe.
var classSeverity = map[types.WeatherClass]int{
	types.WeatherUnknown:      0,
	types.WeatherClear:        1,
	types.WeatherPartlyCloudy: 2,
	types.WeatherOvercast:     3,
	types.WeatherFog:          4,
	types.WeatherDrizzle:      5,
	types.WeatherRain:         6,
	types.WeatherSnow:         7,
	types.WeatherThunderstorm: 8,
}

// DominantClass returns the most frequent class across the day's hours.
// Ties go to the more severe class. A day without hourly data is unknown.
func DominantClass(day types.DayForecast) types.WeatherClass {
	counts := make(map[types.WeatherClass]int)
	for _, h := range day.Hourly {
		counts[ClassifyCode(h.Code)]++
	}
	best, bestCount := types.WeatherUnknown, 0
	for class, n := range counts {
		if n > bestCount || (n == bestCount && classSeverity[class] > classSeverity[best]) {
			best, bestCount = class, n
		}
	}
	return best
}

// CodeSet is the set of weather codes that count as sunny.
type CodeSet map[int]struct{}

// NewCodeSet builds a CodeSet from codes.
func NewCodeSet(codes ...int) CodeSet {
	set := make(CodeSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Contains reports whether code is in the set.
func (s CodeSet) Contains(code int) bool {
	_, ok := s[code]
	return ok
}

// String renders the set as a sorted comma-separated list.
func (s CodeSet) String() string {
	codes := make([]int, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
