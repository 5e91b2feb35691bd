package ops

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/appointment"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
	"github.com/rivo-booking/engine/internal/pkg/response"
	"github.com/rivo-booking/engine/internal/reservation"
	"github.com/rivo-booking/engine/internal/tenant"
)

// handlers bundles every ops route handler behind the shared Config.
type handlers struct {
	cfg Config
}

// respondError maps an AppError to its HTTP status; falls back to 404 for
// sentinel not-found errors the domain packages return directly (not
// wrapped as AppError), and 500 otherwise.
func respondError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		response.Error(c, err)
		return
	}
	if errors.Is(err, tenant.ErrNotFound) || errors.Is(err, tenant.ErrCategoryNotFound) || errors.Is(err, tenant.ErrServiceNotFound) ||
		errors.Is(err, appointment.ErrNotFound) || errors.Is(err, reservation.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "internal server error"})
}
