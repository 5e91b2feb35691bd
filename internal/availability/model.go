// Package availability implements the weekly/exception calendar (spec §3)
// and the off-time aggregator (spec §4.2): deriving closed_day/break/holiday/
// exception intervals a tenant is not accepting bookings during.
package availability

import "time"

// OffTimeType classifies why an interval is unavailable for booking.
type OffTimeType string

const (
	TypeClosedDay OffTimeType = "closed_day"
	TypeBreak     OffTimeType = "break"
	TypeHoliday   OffTimeType = "holiday"
	TypeException OffTimeType = "exception"
)

// OffTimeInterval is a half-open [Start, End) span a tenant is not
// accepting bookings during, with a human reason for error messages.
type OffTimeInterval struct {
	Start  time.Time
	End    time.Time
	Type   OffTimeType
	Reason string
}

// Interval is a single open period within a civil day, HH:MM in the
// tenant's timezone.
type Interval struct {
	Open  string
	Close string
}

// Weekly is the per-weekday availability template (spec §3 "Availability").
type Weekly struct {
	ID        string
	TenantID  string
	Weekday   time.Weekday
	Enabled   bool
	Intervals []Interval
}

// Exception overrides a single civil date, either closing the tenant
// entirely or replacing the day's working interval (spec §3
// "AvailabilityException").
type Exception struct {
	ID       string
	TenantID string
	Date     time.Time // civil date, time-of-day ignored
	Closed   bool
	Open     string // HH:MM, empty if not a replacement-interval exception
	Close    string
	Reason   string
}
