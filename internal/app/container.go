package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rivo-booking/engine/internal/appointment"
	"github.com/rivo-booking/engine/internal/audit"
	"github.com/rivo-booking/engine/internal/auth"
	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/ops"
	"github.com/rivo-booking/engine/internal/reservation"
	"github.com/rivo-booking/engine/internal/slot"
	"github.com/rivo-booking/engine/internal/tenant"
)

// Config holds the dependencies and settings required to start the engine.
type Config struct {
	DBPool    *pgxpool.Pool
	JWTSecret string
	JWTTTL    time.Duration

	MinReservationTTL      time.Duration
	MaxReservationTTL      time.Duration
	DefaultReservationTTL  time.Duration
	MaxReservationLifetime time.Duration

	Log *zap.Logger
}

// Container holds the initialized components the rest of the process needs:
// the HTTP router, and the reservation service the cron sweeper also drives.
type Container struct {
	Router       *gin.Engine
	Reservations *reservation.Service
}

// NewContainer wires every module's repository/service pair and the ops
// router.
func NewContainer(cfg Config) *Container {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	tenantRepo := tenant.NewPgxRepository(cfg.DBPool)
	catalog := tenant.NewCatalog(tenantRepo, cfg.Log)

	availRepo := availability.NewPgxRepository(cfg.DBPool)
	aggregator := availability.NewAggregator(availRepo)

	slotGenerator := slot.NewGenerator(aggregator, aggregator)

	reservationRepo := reservation.NewPgxRepository(cfg.DBPool)
	reservationService := reservation.NewService(reservationRepo, cfg.Log,
		cfg.MinReservationTTL, cfg.MaxReservationTTL, cfg.DefaultReservationTTL, cfg.MaxReservationLifetime)

	appointmentRepo := appointment.NewPgxRepository(cfg.DBPool)
	auditRepo := audit.NewPgxRepository(cfg.DBPool)
	appointmentService := appointment.NewService(appointmentRepo, auditRepo, reservationService, cfg.Log)

	router := ops.NewRouter(ops.Config{
		Catalog:      catalog,
		Availability: availRepo,
		Aggregator:   aggregator,
		Slots:        slotGenerator,
		Reservations: reservationService,
		Appointments: appointmentService,
		JWTManager:   jwtManager,
		Log:          cfg.Log,
	})

	return &Container{
		Router:       router,
		Reservations: reservationService,
	}
}
