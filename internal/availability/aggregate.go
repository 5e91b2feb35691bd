package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rivo-booking/engine/internal/grain"
)

// Aggregator computes off-time intervals from a tenant's weekly template and
// date exceptions (spec §4.2).
type Aggregator struct {
	repo Repository
}

// NewAggregator builds an Aggregator backed by repo.
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Aggregate returns an ordered, non-overlapping list of off-time intervals
// covering every civil day in [from, to] (inclusive) in tz.
func (a *Aggregator) Aggregate(ctx context.Context, tenantID string, from, to time.Time, tz *time.Location) ([]OffTimeInterval, error) {
	weekly, err := a.repo.ListWeekly(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("availability: aggregate: %w", err)
	}
	byWeekday := make(map[time.Weekday]Weekly, len(weekly))
	for _, w := range weekly {
		byWeekday[w.Weekday] = w
	}

	exceptions, err := a.repo.ListExceptions(ctx, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: aggregate: %w", err)
	}
	byDate := make(map[string]Exception, len(exceptions))
	for _, e := range exceptions {
		byDate[e.Date.Format("2006-01-02")] = e
	}

	var out []OffTimeInterval
	start := grain.StartOfDay(from, tz)
	end := grain.StartOfDay(to, tz)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		intervals, err := a.dayOffTimes(day, tz, byWeekday, byDate)
		if err != nil {
			return nil, err
		}
		out = append(out, intervals...)
	}
	return out, nil
}

func (a *Aggregator) dayOffTimes(day time.Time, tz *time.Location, byWeekday map[time.Weekday]Weekly, byDate map[string]Exception) ([]OffTimeInterval, error) {
	dayStart := grain.StartOfDay(day, tz)
	dayEnd := grain.EndOfDay(day, tz)

	intervals, breakType, reason, err := resolveDayIntervals(day, tz, byWeekday, byDate)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		closedType, closedReason := TypeClosedDay, "closed"
		if exc, ok := byDate[day.In(tz).Format("2006-01-02")]; ok && exc.Closed {
			closedType, closedReason = TypeHoliday, reasonOr(exc.Reason, "holiday")
		}
		return []OffTimeInterval{{Start: dayStart, End: dayEnd, Type: closedType, Reason: closedReason}}, nil
	}
	return surroundingOffTimes(dayStart, dayEnd, intervals, breakType, reason), nil
}

// WorkingInterval is a single open period on a civil day, resolved to
// concrete instants in the tenant's timezone.
type WorkingInterval struct {
	Start time.Time
	End   time.Time
}

// OpenIntervals returns the working intervals for a single civil day,
// applying any date exception over the weekly template, for the slot
// generator (spec §4.3 step 2). An empty slice means the tenant is closed
// the entire day.
func (a *Aggregator) OpenIntervals(ctx context.Context, tenantID string, day time.Time, tz *time.Location) ([]WorkingInterval, error) {
	weekly, err := a.repo.ListWeekly(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("availability: open intervals: %w", err)
	}
	byWeekday := make(map[time.Weekday]Weekly, len(weekly))
	for _, w := range weekly {
		byWeekday[w.Weekday] = w
	}

	exceptions, err := a.repo.ListExceptions(ctx, tenantID, day, day)
	if err != nil {
		return nil, fmt.Errorf("availability: open intervals: %w", err)
	}
	byDate := make(map[string]Exception, len(exceptions))
	for _, e := range exceptions {
		byDate[e.Date.Format("2006-01-02")] = e
	}

	intervals, _, _, err := resolveDayIntervals(day, tz, byWeekday, byDate)
	if err != nil {
		return nil, err
	}
	out := make([]WorkingInterval, len(intervals))
	for i, iv := range intervals {
		out[i] = WorkingInterval{Start: iv.start, End: iv.end}
	}
	return out, nil
}

type interval struct {
	start, end time.Time
}

// resolveDayIntervals returns the effective working intervals for day,
// applying any date exception over the weekly template (spec §4.2 steps 1-2).
// An empty result means the tenant is closed the entire day.
func resolveDayIntervals(day time.Time, tz *time.Location, byWeekday map[time.Weekday]Weekly, byDate map[string]Exception) ([]interval, OffTimeType, string, error) {
	if exc, ok := byDate[day.In(tz).Format("2006-01-02")]; ok {
		if exc.Closed {
			return nil, TypeHoliday, reasonOr(exc.Reason, "holiday"), nil
		}
		if exc.Open != "" && exc.Close != "" {
			open, err := grain.ParseClock(exc.Open, day, tz)
			if err != nil {
				return nil, "", "", fmt.Errorf("availability: parse exception open: %w", err)
			}
			closeT, err := grain.ParseClock(exc.Close, day, tz)
			if err != nil {
				return nil, "", "", fmt.Errorf("availability: parse exception close: %w", err)
			}
			return []interval{{open, closeT}}, TypeException, exc.Reason, nil
		}
	}

	w, ok := byWeekday[day.In(tz).Weekday()]
	if !ok || !w.Enabled || len(w.Intervals) == 0 {
		return nil, TypeClosedDay, "closed", nil
	}

	intervals := make([]interval, 0, len(w.Intervals))
	for _, iv := range w.Intervals {
		open, err := grain.ParseClock(iv.Open, day, tz)
		if err != nil {
			return nil, "", "", fmt.Errorf("availability: parse weekly open: %w", err)
		}
		closeT, err := grain.ParseClock(iv.Close, day, tz)
		if err != nil {
			return nil, "", "", fmt.Errorf("availability: parse weekly close: %w", err)
		}
		intervals = append(intervals, interval{open, closeT})
	}
	return intervals, TypeBreak, "", nil
}

// surroundingOffTimes emits the closed_day gap before the first open
// interval, a gap of type breakType between each consecutive pair, and the
// closed_day gap after the last close, per spec §4.2 steps 3-5.
func surroundingOffTimes(dayStart, dayEnd time.Time, intervals []interval, breakType OffTimeType, reason string) []OffTimeInterval {
	var out []OffTimeInterval

	if intervals[0].start.After(dayStart) {
		out = append(out, OffTimeInterval{Start: dayStart, End: intervals[0].start, Type: TypeClosedDay, Reason: "before business hours"})
	}

	for i := 0; i < len(intervals)-1; i++ {
		prev, next := intervals[i], intervals[i+1]
		if next.start.After(prev.end) {
			out = append(out, OffTimeInterval{Start: prev.end, End: next.start, Type: breakType, Reason: reasonOr(reason, "break")})
		}
	}

	last := intervals[len(intervals)-1]
	if dayEnd.After(last.end) {
		out = append(out, OffTimeInterval{Start: last.end, End: dayEnd, Type: TypeClosedDay, Reason: "after business hours"})
	}

	return out
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

// IsTimeAvailable reports whether [s, e) overlaps none of offTimes.
func IsTimeAvailable(s, e time.Time, offTimes []OffTimeInterval) bool {
	return len(GetIntersectingOffTimes(s, e, offTimes)) == 0
}

// GetIntersectingOffTimes returns every off-time interval overlapping [s, e),
// in order, for use in error messages (spec §4.2).
func GetIntersectingOffTimes(s, e time.Time, offTimes []OffTimeInterval) []OffTimeInterval {
	var out []OffTimeInterval
	for _, o := range offTimes {
		if grain.Overlap(s, e, o.Start, o.End) {
			out = append(out, o)
		}
	}
	return out
}
