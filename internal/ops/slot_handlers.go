package ops

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/appointment"
	"github.com/rivo-booking/engine/internal/grain"
	"github.com/rivo-booking/engine/internal/pkg/response"
	"github.com/rivo-booking/engine/internal/slot"
)

// Defaults applied when a slots request omits the corresponding query
// parameter; a tenant-level booking-configuration collaborator may
// eventually own these (spec §6.1), but the generator itself stays a pure
// function of whatever Config it's handed.
const (
	defaultTimeSlotMinutes    = 15
	defaultAdvanceBookingDays = 30
	defaultMinAdvanceMinutes  = 60
)

func (h *handlers) getSlots(c *gin.Context) {
	tenantID := c.Param("tenantId")
	serviceID := c.Param("serviceId")

	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	t, err := h.cfg.Catalog.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	svc, err := h.cfg.Catalog.GetService(c.Request.Context(), serviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	cfg := slot.Config{
		Timezone:                 t.Timezone,
		TimeSlotDuration:         time.Duration(queryIntOrDefault(c, "time_slot_minutes", defaultTimeSlotMinutes)) * time.Minute,
		AdvanceBookingDays:       queryIntOrDefault(c, "advance_booking_days", defaultAdvanceBookingDays),
		MinAdvanceBookingMinutes: queryIntOrDefault(c, "min_advance_booking_minutes", defaultMinAdvanceMinutes),
		ServiceDuration:          svc.Duration(),
		BufferBefore:             svc.BufferBefore(),
		BufferAfter:              svc.BufferAfter(),
		MaxSimultaneousBookings:  svc.MaxSimultaneousBookings,
	}

	tz, err := grain.LoadLocation(t.Timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid tenant timezone"})
		return
	}
	// The generator covers every civil day in [from, to], so occupants are
	// loaded through the end of the last day in the tenant's timezone.
	occupants, err := h.loadOccupants(c, tenantID, serviceID, grain.StartOfDay(from, tz), grain.StartOfDay(to, tz).AddDate(0, 0, 1))
	if err != nil {
		respondError(c, err)
		return
	}

	slots, err := h.cfg.Slots.Generate(c.Request.Context(), tenantID, cfg, from, to, time.Now(), occupants)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, newSlotResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

// loadOccupants merges confirmed appointments and live reservations for
// (tenantID, serviceID) in [from, to) into the generator's occupant list
// (spec §4.3: capacity is computed against "existing confirmed appointments
// ... live reservations").
func (h *handlers) loadOccupants(c *gin.Context, tenantID, serviceID string, from, to time.Time) ([]slot.Occupant, error) {
	ctx := c.Request.Context()

	appts, err := h.cfg.Appointments.ListAppointments(ctx, appointment.Filter{
		TenantID: tenantID, ServiceID: serviceID,
		Status: appointment.StatusConfirmed, From: &from, To: &to,
	})
	if err != nil {
		return nil, err
	}
	live, err := h.cfg.Reservations.ListLive(ctx, tenantID, serviceID, from, to)
	if err != nil {
		return nil, err
	}

	occupants := make([]slot.Occupant, 0, len(appts)+len(live))
	for _, a := range appts {
		occupants = append(occupants, slot.Occupant{Start: a.SlotStart, End: a.SlotEnd})
	}
	for _, r := range live {
		occupants = append(occupants, slot.Occupant{Start: r.SlotStart, End: r.SlotEnd})
	}
	return occupants, nil
}

func queryIntOrDefault(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getOffTimes exposes the raw off-time intervals an availability.Aggregator
// derives for a tenant/date range, mainly for debugging a tenant's calendar
// configuration from outside the slot generator.
func (h *handlers) getOffTimes(c *gin.Context) {
	tenantID := c.Param("tenantId")
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	t, err := h.cfg.Catalog.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	tz, err := grain.LoadLocation(t.Timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid tenant timezone"})
		return
	}
	offTimes, err := h.cfg.Aggregator.Aggregate(c.Request.Context(), tenantID, from, to, tz)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offTimes)
}
