// Package grain implements the engine's canonical time model (spec §4.1): the
// 5-minute quantum every public time snaps to, half-open interval overlap, and
// timezone-aware day boundaries.
package grain

import (
	"fmt"
	"time"

	_ "time/tzdata" // bundle the IANA database so day-boundary math is correct without a host zoneinfo install
)

// Size is the sole time quantum the engine operates on.
const Size = 5 * time.Minute

// SnapToGrain returns t rounded to the nearest grain boundary. A remainder
// exactly at half a grain rounds up, matching spec §4.1.
func SnapToGrain(t time.Time) time.Time {
	trunc := t.Truncate(Size)
	rem := t.Sub(trunc)
	if rem*2 >= Size {
		return trunc.Add(Size)
	}
	return trunc
}

// AlignedToGrain reports whether t already sits on a grain boundary: zero
// seconds and nanoseconds, and a minute that is a multiple of 5.
func AlignedToGrain(t time.Time) bool {
	return t.Second() == 0 && t.Nanosecond() == 0 && t.Minute()%5 == 0
}

// Overlap reports whether half-open intervals [aStart, aEnd) and [bStart, bEnd)
// intersect.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// StartOfDay returns the instant at 00:00:00.000 of t's civil date in tz.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the instant at 23:59:59.999999999 of t's civil date in tz.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	return StartOfDay(t, tz).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseClock parses an "HH:MM" string against the civil date of `on` in tz and
// returns the resulting instant.
func ParseClock(hhmm string, on time.Time, tz *time.Location) (time.Time, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%2d:%2d", &h, &m); err != nil {
		return time.Time{}, fmt.Errorf("grain: invalid HH:MM %q: %w", hhmm, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return time.Time{}, fmt.Errorf("grain: time out of range %q", hhmm)
	}
	local := on.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, tz), nil
}

// LoadLocation loads an IANA timezone by name, wrapping the error for context.
func LoadLocation(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("grain: unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}
