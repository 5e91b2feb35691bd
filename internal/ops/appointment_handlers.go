package ops

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/appointment"
	"github.com/rivo-booking/engine/internal/auth"
	"github.com/rivo-booking/engine/internal/bookingrules"
	"github.com/rivo-booking/engine/internal/grain"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
	"github.com/rivo-booking/engine/internal/pkg/response"
)

func (h *handlers) commitReservation(c *gin.Context) {
	var req commitReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	var guest *appointment.GuestContact
	if req.GuestName != "" || req.GuestEmail != "" || req.GuestPhone != "" {
		guest = &appointment.GuestContact{Name: req.GuestName, Email: req.GuestEmail, Phone: req.GuestPhone}
	}

	a, err := h.cfg.Appointments.CommitReservation(c.Request.Context(), req.ReservationID, req.CustomerID,
		guest, time.Duration(req.GuestAccessTTLSec)*time.Second, auth.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAppointmentResponse(a))
}

func (h *handlers) createManualAppointment(c *gin.Context) {
	var req createManualAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	var guest *appointment.GuestContact
	if req.GuestName != "" || req.GuestEmail != "" || req.GuestPhone != "" {
		guest = &appointment.GuestContact{Name: req.GuestName, Email: req.GuestEmail, Phone: req.GuestPhone}
	}

	a, err := h.cfg.Appointments.CreateManualAppointment(c.Request.Context(), req.TenantID, req.ServiceID,
		req.SlotStart, req.SlotEnd, guest, req.IdempotencyKey, auth.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAppointmentResponse(a))
}

func (h *handlers) getAppointment(c *gin.Context) {
	a, err := h.cfg.Appointments.GetAppointment(c.Request.Context(), c.Param("appointmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(a))
}

func (h *handlers) listAppointments(c *gin.Context) {
	filter := appointment.Filter{
		TenantID:  c.Query("tenant_id"),
		ServiceID: c.Query("service_id"),
		Status:    appointment.Status(c.Query("status")),
	}
	appts, err := h.cfg.Appointments.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, newAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, 1, len(out), len(out)))
}

func (h *handlers) updateAppointment(c *gin.Context) {
	var req updateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	params := appointment.UpdateParams{
		ID:              c.Param("appointmentId"),
		ExpectedVersion: req.ExpectedVersion,
		NewSlotStart:    req.NewSlotStart,
		NewSlotEnd:      req.NewSlotEnd,
		NewServiceID:    req.NewServiceID,
		Actor:           auth.GetActor(c),
	}
	if req.NewStatus != nil {
		status := appointment.Status(*req.NewStatus)
		params.NewStatus = &status
	}

	if req.NewSlotStart != nil || req.NewSlotEnd != nil || req.NewServiceID != nil {
		rules, err := h.loadRescheduleBookingRules(c, params)
		if err != nil {
			respondError(c, err)
			return
		}
		params.BookingRules = rules
	}

	a, err := h.cfg.Appointments.UpdateAppointment(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(a))
}

// loadRescheduleBookingRules builds the §4.7 validation params for a
// reschedule, resolving any field the request leaves unchanged against the
// existing appointment (spec §4.5: "the new interval must also pass §4.7
// booking validation"). An operator-initiated reschedule skips the
// advance-booking horizon checks but still enforces PAST_TIME and
// OFF_TIME_CONFLICT (spec §9 open question, see DESIGN.md).
func (h *handlers) loadRescheduleBookingRules(c *gin.Context, params appointment.UpdateParams) (*bookingrules.Params, error) {
	ctx := c.Request.Context()

	existing, err := h.cfg.Appointments.GetAppointment(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	slotStart := existing.SlotStart
	if params.NewSlotStart != nil {
		slotStart = *params.NewSlotStart
	}
	slotEnd := existing.SlotEnd
	if params.NewSlotEnd != nil {
		slotEnd = *params.NewSlotEnd
	}
	serviceID := existing.ServiceID
	if params.NewServiceID != nil {
		serviceID = *params.NewServiceID
	}

	svc, err := h.cfg.Catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	t, err := h.cfg.Catalog.GetTenant(ctx, existing.TenantID)
	if err != nil {
		return nil, err
	}
	tz, err := grain.LoadLocation(t.Timezone)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidInput, "invalid tenant timezone")
	}

	window := svc.BufferBefore() + svc.BufferAfter()
	offTimes, err := h.cfg.Aggregator.Aggregate(ctx, existing.TenantID, slotStart.Add(-window), slotEnd.Add(window), tz)
	if err != nil {
		return nil, err
	}

	return &bookingrules.Params{
		Now:              time.Now(),
		SlotStart:        slotStart,
		SlotEnd:          slotEnd,
		BufferBefore:     svc.BufferBefore(),
		BufferAfter:      svc.BufferAfter(),
		OffTimes:         offTimes,
		SkipHorizonCheck: true,
	}, nil
}

func (h *handlers) cancelAppointment(c *gin.Context) {
	if err := h.cfg.Appointments.CancelAppointment(c.Request.Context(), c.Param("appointmentId"), auth.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) appointmentHistory(c *gin.Context) {
	entries, err := h.cfg.Appointments.History(c.Request.Context(), c.Param("appointmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newAuditEntryResponse(e))
	}
	c.JSON(http.StatusOK, out)
}
