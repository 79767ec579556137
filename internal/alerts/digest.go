package alerts

import (
	"encoding/binary"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"

	"weatheralert/internal/types"
)

// Field tags for the canonical digest encoding. Each value is written as
// tag followed by a fixed-width big-endian integer, in this order, so the
// digest does not depend on struct layout or JSON field order.
const (
	tagHourClass byte = 0x01
	tagRain      byte = 0x02
	tagMaxTemp   byte = 0x03
	tagMinTemp   byte = 0x04
	tagUV        byte = 0x05
)

// classCodes gives each class a stable wire value for hashing.
var classCodes = map[types.WeatherClass]int64{
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

// RainBucket rounds a probability to the nearest 10 percentage points.
func RainBucket(p float64) int64 {
	return int64(math.Round(p/10) * 10)
}

// sunnyFlag marks an hour whose code is in the configured sunny set. Two
// codes of the same class can fall on different sides of that set.
const sunnyFlag int64 = 1 << 8

// Digest fingerprints the user-facing fields of day. Raw weather codes are
// reduced to their class plus membership in sunny, rain to its 10% bucket and
// temperatures and UV to whole numbers, so jitter between fetches below those
// thresholds yields the same digest.
func Digest(day types.DayForecast, sunny CodeSet) types.Digest {
	hours := make([]types.HourlyCode, len(day.Hourly))
	copy(hours, day.Hourly)
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })

	buf := make([]byte, 0, 9*(2*len(hours)+4))
	put := func(tag byte, v int64) {
		buf = append(buf, tag)
		buf = binary.BigEndian.AppendUint64(buf, uint64(v))
	}

	for _, h := range hours {
		class := classCodes[ClassifyCode(h.Code)]
		if sunny.Contains(h.Code) {
			class |= sunnyFlag
		}
		put(tagHourClass, int64(h.Hour))
		buf = binary.BigEndian.AppendUint64(buf, uint64(class))
	}
	put(tagRain, RainBucket(day.RainProbability))
	put(tagMaxTemp, int64(math.Round(day.MaxTempC)))
	put(tagMinTemp, int64(math.Round(day.MinTempC)))
	put(tagUV, int64(math.Round(day.UVIndex)))

	return types.Digest(blake2b.Sum256(buf))
}

// Changed reports whether two digests differ.
func Changed(prev, next types.Digest) bool {
	return prev != next
}
