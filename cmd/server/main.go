package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rivo-booking/engine/internal/app"
	"github.com/rivo-booking/engine/internal/config"
	"github.com/rivo-booking/engine/internal/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	container := app.NewContainer(app.Config{
		DBPool:                 pool,
		JWTSecret:              cfg.OpsJWTSecret,
		JWTTTL:                 24 * time.Hour,
		MinReservationTTL:      cfg.MinReservationTTL,
		MaxReservationTTL:      cfg.MaxReservationTTL,
		DefaultReservationTTL:  cfg.DefaultReservationTTL,
		MaxReservationLifetime: cfg.MaxReservationLifetime,
		Log:                    log,
	})

	sweeper := cron.New()
	_, err = sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := container.Reservations.CleanupExpired(sweepCtx)
		if err != nil {
			log.Error("reservation sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("reservation sweep cleaned up expired reservations", zap.Int("count", n))
		}
	})
	if err != nil {
		log.Fatal("failed to schedule reservation sweeper", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:    cfg.OpsAddr,
		Handler: container.Router,
	}

	go func() {
		log.Info("ops server listening", zap.String("addr", cfg.OpsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited gracefully")
}
