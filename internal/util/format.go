package util //nolint:revive // package name util hosts shared display helpers

import (
	"math"
	"time"
)

// FormatSeconds renders a step execution time reported in fractional seconds.
// Negative, NaN and zero values render as "-".
func FormatSeconds(secs float64) string {
	if math.IsNaN(secs) || secs <= 0 {
		return "-"
	}
	d := time.Duration(secs * float64(time.Second))
	if d < time.Millisecond {
		return d.String()
	}
	return d.Truncate(time.Millisecond).String()
}
