// Package slot implements the slot generator (spec §4.3): for a tenant,
// service and date range, it produces labeled TimeSlots carrying
// availability and remaining capacity.
package slot

import "time"

// TimeSlot is one candidate booking start offered to customers.
type TimeSlot struct {
	Start              time.Time
	End                time.Time
	Available          bool
	Capacity           int
	TotalCapacity      int
	CapacityPercentage int
	Reason             string
}

// Config is the subset of tenant/service configuration the generator needs
// (spec §6.1): stride, horizon, lead time and the service's own duration,
// buffers and capacity.
type Config struct {
	Timezone                 string
	TimeSlotDuration         time.Duration
	AdvanceBookingDays       int
	MinAdvanceBookingMinutes int

	ServiceDuration     time.Duration
	BufferBefore        time.Duration
	BufferAfter         time.Duration
	MaxSimultaneousBookings int
}

// Occupant is an existing confirmed appointment or live reservation that
// counts against capacity for its [Start, End) span.
type Occupant struct {
	Start time.Time
	End   time.Time
}
