package ops

import (
	"time"

	"github.com/rivo-booking/engine/internal/appointment"
	"github.com/rivo-booking/engine/internal/audit"
	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/reservation"
	"github.com/rivo-booking/engine/internal/slot"
	"github.com/rivo-booking/engine/internal/tenant"
)

type createTenantRequest struct {
	DisplayName   string `json:"display_name" binding:"required"`
	PreferredSlug string `json:"preferred_slug"`
	Timezone      string `json:"timezone" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
}

type tenantResponse struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID: t.ID, Slug: t.Slug, DisplayName: t.DisplayName, Timezone: t.Timezone,
		Currency: t.Currency, Status: string(t.Status), CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

type categoryResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func newCategoryResponse(c *tenant.Category) categoryResponse {
	return categoryResponse{ID: c.ID, TenantID: c.TenantID, Name: c.Name, Description: c.Description, SortOrder: c.SortOrder}
}

type createServiceRequest struct {
	CategoryID              string `json:"category_id" binding:"required,uuid"`
	Name                    string `json:"name" binding:"required"`
	DurationMinutes         int    `json:"duration_minutes" binding:"required"`
	PriceMinor              int64  `json:"price_minor"`
	Color                   string `json:"color"`
	MaxSimultaneousBookings int    `json:"max_simultaneous_bookings" binding:"required,min=1"`
	BufferBeforeMinutes     int    `json:"buffer_before_minutes"`
	BufferAfterMinutes      int    `json:"buffer_after_minutes"`
	SortOrder               int    `json:"sort_order"`
}

type serviceResponse struct {
	ID                      string `json:"id"`
	TenantID                string `json:"tenant_id"`
	CategoryID              string `json:"category_id"`
	Name                    string `json:"name"`
	DurationMinutes         int    `json:"duration_minutes"`
	PriceMinor              int64  `json:"price_minor"`
	Color                   string `json:"color"`
	MaxSimultaneousBookings int    `json:"max_simultaneous_bookings"`
	BufferBeforeMinutes     int    `json:"buffer_before_minutes"`
	BufferAfterMinutes      int    `json:"buffer_after_minutes"`
	Enabled                 bool   `json:"enabled"`
}

func newServiceResponse(s *tenant.Service) serviceResponse {
	return serviceResponse{
		ID: s.ID, TenantID: s.TenantID, CategoryID: s.CategoryID, Name: s.Name,
		DurationMinutes: s.DurationMinutes, PriceMinor: s.PriceMinor, Color: s.Color,
		MaxSimultaneousBookings: s.MaxSimultaneousBookings, BufferBeforeMinutes: s.BufferBeforeMinutes,
		BufferAfterMinutes: s.BufferAfterMinutes, Enabled: s.Enabled,
	}
}

type weeklyUpsertRequest struct {
	Weekday   int                     `json:"weekday" binding:"min=0,max=6"`
	Enabled   bool                    `json:"enabled"`
	Intervals []availability.Interval `json:"intervals"`
}

type exceptionUpsertRequest struct {
	Date   string `json:"date" binding:"required"` // YYYY-MM-DD
	Closed bool   `json:"closed"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	Reason string `json:"reason"`
}

type slotResponse struct {
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	Available          bool      `json:"available"`
	Capacity           int       `json:"capacity"`
	TotalCapacity      int       `json:"total_capacity"`
	CapacityPercentage int       `json:"capacity_percentage"`
	Reason             string    `json:"reason,omitempty"`
}

func newSlotResponse(s slot.TimeSlot) slotResponse {
	return slotResponse{
		Start: s.Start, End: s.End, Available: s.Available, Capacity: s.Capacity,
		TotalCapacity: s.TotalCapacity, CapacityPercentage: s.CapacityPercentage, Reason: s.Reason,
	}
}

type createReservationRequest struct {
	TenantID       string `json:"tenant_id" binding:"required,uuid"`
	ServiceID      string `json:"service_id" binding:"required,uuid"`
	SlotStart      time.Time `json:"slot_start" binding:"required"`
	SlotEnd        time.Time `json:"slot_end" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	TTLSeconds     int    `json:"ttl_seconds"`
}

type reservationResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ServiceID string    `json:"service_id"`
	SlotStart time.Time `json:"slot_start"`
	SlotEnd   time.Time `json:"slot_end"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func newReservationResponse(r *reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID: r.ID, TenantID: r.TenantID, ServiceID: r.ServiceID,
		SlotStart: r.SlotStart, SlotEnd: r.SlotEnd, ExpiresAt: r.ExpiresAt, CreatedAt: r.CreatedAt,
	}
}

type extendReservationRequest struct {
	AdditionalSeconds int `json:"additional_seconds" binding:"required,min=1"`
}

type commitReservationRequest struct {
	ReservationID     string `json:"reservation_id" binding:"required,uuid"`
	CustomerID        string `json:"customer_id"`
	GuestName         string `json:"guest_name"`
	GuestEmail        string `json:"guest_email"`
	GuestPhone        string `json:"guest_phone"`
	GuestAccessTTLSec int    `json:"guest_access_ttl_seconds"`
}

type createManualAppointmentRequest struct {
	TenantID       string    `json:"tenant_id" binding:"required,uuid"`
	ServiceID      string    `json:"service_id" binding:"required,uuid"`
	SlotStart      time.Time `json:"slot_start" binding:"required"`
	SlotEnd        time.Time `json:"slot_end" binding:"required"`
	GuestName      string    `json:"guest_name"`
	GuestEmail     string    `json:"guest_email"`
	GuestPhone     string    `json:"guest_phone"`
	IdempotencyKey string    `json:"idempotency_key"`
}

type updateAppointmentRequest struct {
	ExpectedVersion int        `json:"expected_version" binding:"required"`
	NewSlotStart    *time.Time `json:"new_slot_start"`
	NewSlotEnd      *time.Time `json:"new_slot_end"`
	NewServiceID    *string    `json:"new_service_id"`
	NewStatus       *string    `json:"new_status"`
}

type appointmentResponse struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ServiceID   string     `json:"service_id"`
	BookingCode string     `json:"booking_code"`
	SlotStart   time.Time  `json:"slot_start"`
	SlotEnd     time.Time  `json:"slot_end"`
	Status      string     `json:"status"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func newAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID: a.ID, TenantID: a.TenantID, ServiceID: a.ServiceID, BookingCode: a.BookingCode,
		SlotStart: a.SlotStart, SlotEnd: a.SlotEnd, Status: string(a.Status), Version: a.Version,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, DeletedAt: a.DeletedAt,
	}
}

type auditEntryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newAuditEntryResponse(e audit.Entry) auditEntryResponse {
	return auditEntryResponse{ID: e.ID, Action: string(e.Action), ActorID: e.ActorID, CreatedAt: e.CreatedAt}
}
