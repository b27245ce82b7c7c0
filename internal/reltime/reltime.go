// Package reltime formats timestamps relative to a reference time ("3 hours ago").
package reltime

import (
	"fmt"
	"time"
)

const (
	day   = 24 * time.Hour
	month = 30 * day
	year  = 365 * day
)

// Format describes how long before now t happened. Timestamps in the future
// are treated as "just now".
func Format(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return ago(int(d/time.Minute), "minute")
	case d < day:
		return ago(int(d/time.Hour), "hour")
	case d < month:
		return ago(int(d/day), "day")
	case d < year:
		return ago(int(d/month), "month")
	default:
		return ago(int(d/year), "year")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
