package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/pkg/response"
	"github.com/rivo-booking/engine/internal/tenant"
)

func (h *handlers) createService(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	svc := &tenant.Service{
		TenantID:                c.Param("tenantId"),
		CategoryID:              req.CategoryID,
		Name:                    req.Name,
		DurationMinutes:         req.DurationMinutes,
		PriceMinor:              req.PriceMinor,
		Color:                   req.Color,
		MaxSimultaneousBookings: req.MaxSimultaneousBookings,
		BufferBeforeMinutes:     req.BufferBeforeMinutes,
		BufferAfterMinutes:      req.BufferAfterMinutes,
		SortOrder:               req.SortOrder,
		Enabled:                 true,
	}
	created, err := h.cfg.Catalog.CreateService(c.Request.Context(), svc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newServiceResponse(created))
}

func (h *handlers) getService(c *gin.Context) {
	svc, err := h.cfg.Catalog.GetService(c.Request.Context(), c.Param("serviceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newServiceResponse(svc))
}

func (h *handlers) listServices(c *gin.Context) {
	svcs, err := h.cfg.Catalog.ListServices(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]serviceResponse, 0, len(svcs))
	for _, s := range svcs {
		out = append(out, newServiceResponse(s))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, 1, len(out), len(out)))
}

func (h *handlers) updateService(c *gin.Context) {
	existing, err := h.cfg.Catalog.GetService(c.Request.Context(), c.Param("serviceId"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	existing.CategoryID = req.CategoryID
	existing.Name = req.Name
	existing.DurationMinutes = req.DurationMinutes
	existing.PriceMinor = req.PriceMinor
	existing.Color = req.Color
	existing.MaxSimultaneousBookings = req.MaxSimultaneousBookings
	existing.BufferBeforeMinutes = req.BufferBeforeMinutes
	existing.BufferAfterMinutes = req.BufferAfterMinutes
	existing.SortOrder = req.SortOrder

	if err := h.cfg.Catalog.UpdateService(c.Request.Context(), existing); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newServiceResponse(existing))
}
