// Package bookingrules implements the uniform booking-time validation used
// by customer booking, operator creation, and reschedule (spec §4.7).
package bookingrules

import (
	"fmt"
	"time"

	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
)

// PastTimeGrace absorbs clock skew and form submission latency (spec §4.7).
const PastTimeGrace = 5 * time.Minute

// Params bundles validateBookingTime's inputs (spec §4.7).
type Params struct {
	Now                     time.Time
	SlotStart               time.Time
	SlotEnd                 time.Time
	BufferBefore            time.Duration
	BufferAfter             time.Duration
	OffTimes                []availability.OffTimeInterval
	AdvanceBookingDays      int
	MinAdvanceBookingMinutes int
	SkipHorizonCheck        bool
	SkipPastCheck           bool
}

// Validate runs the sequential checks of spec §4.7, first failure wins.
// A nil error return means the interval is bookable.
func Validate(p Params) error {
	if !p.SkipPastCheck && p.SlotStart.Before(p.Now.Add(-PastTimeGrace)) {
		return apperror.New(apperror.KindPastTime, "slot start is in the past")
	}

	if !p.SkipHorizonCheck {
		horizon := p.Now.AddDate(0, 0, p.AdvanceBookingDays)
		if p.SlotStart.After(horizon) {
			return apperror.New(apperror.KindBeyondAdvanceLimit, "slot start is beyond the advance booking horizon")
		}
		minStart := p.Now.Add(time.Duration(p.MinAdvanceBookingMinutes) * time.Minute)
		if p.SlotStart.Before(minStart) {
			return apperror.New(apperror.KindBelowMinAdvance, "slot start is within the minimum advance booking window")
		}
	}

	effectiveStart := p.SlotStart.Add(-p.BufferBefore)
	effectiveEnd := p.SlotEnd.Add(p.BufferAfter)
	intersecting := availability.GetIntersectingOffTimes(effectiveStart, effectiveEnd, p.OffTimes)
	if len(intersecting) > 0 {
		return apperror.New(apperror.KindOffTimeConflict, fmt.Sprintf("conflicts with %s", intersecting[0].Reason))
	}

	return nil
}
