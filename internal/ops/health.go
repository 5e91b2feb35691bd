package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/reservation"
)

// newHealthHandler builds the unauthenticated /healthz probe (spec §4.4
// "Health probes"): it reports degraded (503) whenever the reservation
// subsystem crosses an alert threshold, so an external monitor can page on
// it directly.
func newHealthHandler(reservations *reservation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, err := reservations.Health(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
			return
		}
		status := http.StatusOK
		if !h.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":             healthLabel(h.IsHealthy()),
			"active_reservations":  h.ActiveCount,
			"expired_reservations": h.ExpiredCount,
			"median_ttl_seconds":    h.MedianTTL.Seconds(),
			"oldest_live_age_seconds": h.OldestLiveAge.Seconds(),
		})
	}
}

func healthLabel(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}
