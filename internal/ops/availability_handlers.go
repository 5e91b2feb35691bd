package ops

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/pkg/response"
)

func (h *handlers) upsertWeekly(c *gin.Context) {
	var req weeklyUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	w := &availability.Weekly{
		TenantID:  c.Param("tenantId"),
		Weekday:   time.Weekday(req.Weekday),
		Enabled:   req.Enabled,
		Intervals: req.Intervals,
	}
	if err := h.cfg.Availability.UpsertWeekly(c.Request.Context(), w); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listWeekly(c *gin.Context) {
	w, err := h.cfg.Availability.ListWeekly(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *handlers) upsertException(c *gin.Context) {
	var req exceptionUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: err.Error()})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}
	e := &availability.Exception{
		TenantID: c.Param("tenantId"),
		Date:     date,
		Closed:   req.Closed,
		Open:     req.Open,
		Close:    req.Close,
		Reason:   req.Reason,
	}
	if err := h.cfg.Availability.UpsertException(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listExceptions(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	exceptions, err := h.cfg.Availability.ListExceptions(c.Request.Context(), c.Param("tenantId"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exceptions)
}

// parseDateRange reads the "from"/"to" query parameters (YYYY-MM-DD),
// writing a 400 response and returning ok=false on a malformed value.
func parseDateRange(c *gin.Context) (from, to time.Time, ok bool) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "from and to query parameters are required (YYYY-MM-DD)"})
		return
	}
	var err error
	from, err = time.Parse("2006-01-02", fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid from date"})
		return
	}
	to, err = time.Parse("2006-01-02", toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid to date"})
		return
	}
	return from, to, true
}
