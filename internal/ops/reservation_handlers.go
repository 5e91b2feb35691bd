package ops

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/pkg/response"
)

func (h *handlers) createReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}

	svc, err := h.cfg.Catalog.GetService(c.Request.Context(), req.ServiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	res, err := h.cfg.Reservations.CreateReservation(c.Request.Context(), req.TenantID, req.ServiceID,
		req.SlotStart, req.SlotEnd, req.IdempotencyKey, ttl, svc.MaxSimultaneousBookings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(res))
}

func (h *handlers) extendReservation(c *gin.Context) {
	var req extendReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.cfg.Reservations.ExtendReservation(c.Request.Context(), c.Param("reservationId"),
		time.Duration(req.AdditionalSeconds)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(res))
}

func (h *handlers) deleteReservation(c *gin.Context) {
	if err := h.cfg.Reservations.DeleteReservation(c.Request.Context(), c.Param("reservationId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) cleanupExpiredReservations(c *gin.Context) {
	n, err := h.cfg.Reservations.CleanupExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaned_up": n})
}
