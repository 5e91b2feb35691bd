// Package ops implements the engine's administrative HTTP surface: tenant
// and catalog management, availability configuration, slot lookup, and the
// reservation/appointment lifecycle operations, behind bearer-JWT auth.
package ops

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rivo-booking/engine/internal/appointment"
	"github.com/rivo-booking/engine/internal/auth"
	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/reservation"
	"github.com/rivo-booking/engine/internal/slot"
	"github.com/rivo-booking/engine/internal/tenant"
)

// Config holds every collaborator the ops router needs.
type Config struct {
	Catalog      *tenant.Catalog
	Availability availability.Repository
	Aggregator   *availability.Aggregator
	Slots        *slot.Generator
	Reservations *reservation.Service
	Appointments *appointment.Service
	JWTManager   *auth.JWTManager
	Log          *zap.Logger
}

// NewRouter builds the gin.Engine serving the ops surface (spec §4.6's
// "ops boundary", SPEC_FULL.md's ambient HTTP layer).
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Log))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", newHealthHandler(cfg.Reservations))

	h := &handlers{cfg: cfg}

	authMW := auth.AuthRequired(cfg.JWTManager)
	v1 := r.Group("/v1", authMW)
	{
		v1.POST("/tenants", h.createTenant)
		v1.GET("/tenants/:tenantId", h.getTenant)
		v1.GET("/tenants/by-slug/:slug", h.getTenantBySlug)
		v1.POST("/tenants/:tenantId/suspend", h.suspendTenant)
		v1.POST("/tenants/:tenantId/reactivate", h.reactivateTenant)

		v1.POST("/tenants/:tenantId/categories", h.createCategory)
		v1.GET("/tenants/:tenantId/categories", h.listCategories)

		v1.POST("/tenants/:tenantId/services", h.createService)
		v1.GET("/tenants/:tenantId/services", h.listServices)
		v1.GET("/services/:serviceId", h.getService)
		v1.PATCH("/services/:serviceId", h.updateService)

		v1.PUT("/tenants/:tenantId/availability/weekly", h.upsertWeekly)
		v1.GET("/tenants/:tenantId/availability/weekly", h.listWeekly)
		v1.PUT("/tenants/:tenantId/availability/exceptions", h.upsertException)
		v1.GET("/tenants/:tenantId/availability/exceptions", h.listExceptions)

		v1.GET("/tenants/:tenantId/services/:serviceId/slots", h.getSlots)
		v1.GET("/tenants/:tenantId/off-times", h.getOffTimes)

		v1.POST("/reservations", h.createReservation)
		v1.POST("/reservations/:reservationId/extend", h.extendReservation)
		v1.DELETE("/reservations/:reservationId", h.deleteReservation)

		v1.POST("/appointments/commit", h.commitReservation)
		v1.POST("/appointments", h.createManualAppointment)
		v1.GET("/appointments/:appointmentId", h.getAppointment)
		v1.GET("/appointments", h.listAppointments)
		v1.PATCH("/appointments/:appointmentId", h.updateAppointment)
		v1.POST("/appointments/:appointmentId/cancel", h.cancelAppointment)
		v1.GET("/appointments/:appointmentId/history", h.appointmentHistory)

		v1.POST("/internal/cleanup", h.cleanupExpiredReservations)
	}

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
