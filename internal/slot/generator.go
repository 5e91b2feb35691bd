package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/grain"
)

// DayIntervalSource supplies the per-day open intervals and off-time
// intervals the generator needs; *availability.Aggregator implements the
// open-interval half, paired with its own Aggregate for off-times.
type DayIntervalSource interface {
	OpenIntervals(ctx context.Context, tenantID string, day time.Time, tz *time.Location) ([]availability.WorkingInterval, error)
}

// Generator produces TimeSlots for a tenant/service over a date range
// (spec §4.3).
type Generator struct {
	days DayIntervalSource
	agg  *availability.Aggregator
}

// NewGenerator builds a Generator. agg supplies the off-time list used for
// buffered-overlap checks; days supplies the per-day open intervals used to
// seed candidate starts.
func NewGenerator(days DayIntervalSource, agg *availability.Aggregator) *Generator {
	return &Generator{days: days, agg: agg}
}

// Generate returns TimeSlots for every civil day in [from, to], given the
// occupants (confirmed appointments and live reservations) already booked
// for this tenant/service in range and the current instant now.
func (g *Generator) Generate(ctx context.Context, tenantID string, cfg Config, from, to, now time.Time, occupants []Occupant) ([]TimeSlot, error) {
	tz, err := grain.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	offTimes, err := g.agg.Aggregate(ctx, tenantID, from, to, tz)
	if err != nil {
		return nil, fmt.Errorf("slot: generate: %w", err)
	}

	horizon := grain.StartOfDay(now, tz).AddDate(0, 0, cfg.AdvanceBookingDays)
	minStart := now.Add(time.Duration(cfg.MinAdvanceBookingMinutes) * time.Minute)

	var out []TimeSlot
	start := grain.StartOfDay(from, tz)
	end := grain.StartOfDay(to, tz)
dayLoop:
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.After(horizon) {
			break dayLoop
		}

		intervals, err := g.days.OpenIntervals(ctx, tenantID, day, tz)
		if err != nil {
			return nil, fmt.Errorf("slot: generate: %w", err)
		}

		for _, iv := range intervals {
			slots, stop := g.generateInterval(iv, cfg, offTimes, occupants, minStart, horizon)
			out = append(out, slots...)
			if stop {
				break dayLoop
			}
		}
	}
	return out, nil
}

// generateInterval walks candidate starts within a single open interval at
// the configured stride (spec §4.3 steps 3-4). stop reports that the entire
// remaining generation (this day and all following) must halt because a
// candidate fell past the booking horizon.
func (g *Generator) generateInterval(iv availability.WorkingInterval, cfg Config, offTimes []availability.OffTimeInterval, occupants []Occupant, minStart, horizon time.Time) ([]TimeSlot, bool) {
	var out []TimeSlot
	stride := cfg.TimeSlotDuration

	for s := iv.Start; ; s = s.Add(stride) {
		e := s.Add(cfg.ServiceDuration)
		if e.Add(cfg.BufferAfter).After(iv.End) {
			break
		}
		if s.After(horizon) {
			return out, true
		}
		if s.Before(minStart) {
			continue
		}

		effectiveStart := s.Add(-cfg.BufferBefore)
		effectiveEnd := e.Add(cfg.BufferAfter)

		if !availability.IsTimeAvailable(effectiveStart, effectiveEnd, offTimes) {
			intersecting := availability.GetIntersectingOffTimes(effectiveStart, effectiveEnd, offTimes)
			out = append(out, TimeSlot{
				Start:         s,
				End:           e,
				Available:     false,
				TotalCapacity: cfg.MaxSimultaneousBookings,
				Reason:        fmt.Sprintf("unavailable: %s", intersecting[0].Reason),
			})
			continue
		}

		used := 0
		for _, o := range occupants {
			if grain.Overlap(effectiveStart, effectiveEnd, o.Start, o.End) {
				used++
			}
		}
		capacity := cfg.MaxSimultaneousBookings - used
		if capacity < 0 {
			capacity = 0
		}
		pct := 0
		if cfg.MaxSimultaneousBookings > 0 {
			pct = (used * 100) / cfg.MaxSimultaneousBookings
			if pct > 100 {
				pct = 100
			}
		}
		out = append(out, TimeSlot{
			Start:              s,
			End:                e,
			Available:          capacity > 0,
			Capacity:           capacity,
			TotalCapacity:      cfg.MaxSimultaneousBookings,
			CapacityPercentage: pct,
		})
	}
	return out, false
}
