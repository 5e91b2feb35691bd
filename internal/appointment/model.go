// Package appointment implements the appointment manager (spec §4.5): the
// durable, versioned booking record produced by committing a reservation or
// an operator's manual creation, and its lifecycle (reschedule, cancel).
package appointment

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("appointment: not found")
	ErrAlreadyCanceled = errors.New("appointment: already canceled")
	ErrVersionConflict = errors.New("appointment: version conflict")
)

// Status is the appointment lifecycle state (spec §3 "Appointment").
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// GuestContact carries a non-registered customer's booking details
// (spec §3 "optional customer id or guest contact").
type GuestContact struct {
	Name  string
	Email string
	Phone string
}

// Appointment is a durable, capacity-counted booking (spec §3 "Appointment").
type Appointment struct {
	ID          string
	TenantID    string
	ServiceID   string
	BookingCode string
	SlotStart   time.Time
	SlotEnd     time.Time
	Status      Status

	CustomerID   string
	Guest        *GuestContact
	GuestTokenHash string
	GuestTokenExpiresAt *time.Time

	Version int

	ReservationID  string // historical: the reservation that produced this appointment, if any
	RescheduleOfID string // historical: the appointment this one superseded, if any

	IdempotencyKey string // set only on operator-created appointments

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
