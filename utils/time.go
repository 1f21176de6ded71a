package utils

import (
	"fmt"
	"math"
	"time"
)

// AsMinutes renders a duration as "Xm Ys".
func AsMinutes(d time.Duration) string {
	s := d.Seconds()
	m := math.Floor(s / 60)
	s -= m * 60
	return fmt.Sprintf("%dm %ds", int(m), int(s))
}

// TimeSince reports elapsed time and the estimated remainder given the
// completed fraction of work: "1m 2s (- 3m 4s)".
func TimeSince(since time.Time, percent float64) string {
	elapsed := time.Since(since)
	if percent <= 0 {
		return fmt.Sprintf("%s (- ?)", AsMinutes(elapsed))
	}
	estimated := time.Duration(float64(elapsed) / percent)
	return fmt.Sprintf("%s (- %s)", AsMinutes(elapsed), AsMinutes(estimated-elapsed))
}
