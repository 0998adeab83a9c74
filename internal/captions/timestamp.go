package captions

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidOffset is returned for negative, NaN or infinite time offsets.
var ErrInvalidOffset = errors.New("captions: invalid time offset")

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute

	// Keeps the millisecond total inside int64.
	maxOffsetSeconds = 9e12
)

var thousand = decimal.NewFromInt(msPerSecond)

// FormatTimestamp renders an offset in seconds as an SRT timestamp (HH:MM:SS,mmm).
//
// Rounding to whole milliseconds happens on the total offset, so a fractional
// part of .9995 or more carries into the seconds field instead of producing a
// four digit millisecond field. Hours grow past two digits when needed.
func FormatTimestamp(seconds float64) (string, error) {
	ms, err := toMillis(seconds)
	if err != nil {
		return "", err
	}
	return formatMillis(ms), nil
}

func toMillis(seconds float64) (int64, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 || seconds > maxOffsetSeconds {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOffset, seconds)
	}
	// NewFromFloat starts from the shortest decimal form of the float, so 2.675
	// is 2675ms and not 2674.9999ms.
	return decimal.NewFromFloat(seconds).Mul(thousand).Round(0).IntPart(), nil
}

func formatMillis(total int64) string {
	hours := total / msPerHour
	total %= msPerHour
	minutes := total / msPerMinute
	total %= msPerMinute
	secs := total / msPerSecond
	millis := total % msPerSecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp decodes an SRT timestamp into seconds. A period is accepted
// in place of the comma before the milliseconds.
func ParseTimestamp(value string) (float64, error) {
	ms, err := parseMillis(value)
	if err != nil {
		return 0, err
	}
	return float64(ms) / msPerSecond, nil
}

func parseMillis(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, frac, ok := strings.Cut(value, ",")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 || len(hms[1]) != 2 || len(hms[2]) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.ParseInt(hms[0], 10, 64)
	minutes, errM := strconv.ParseInt(hms[1], 10, 64)
	seconds, errS := strconv.ParseInt(hms[2], 10, 64)
	millis, errMS := strconv.ParseInt(frac, 10, 64)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return hours*msPerHour + minutes*msPerMinute + seconds*msPerSecond + millis, nil
}
