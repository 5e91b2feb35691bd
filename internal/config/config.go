// Package config loads the engine's own bootstrap settings — database DSN, the
// ops surface's listen address and JWT secret, default reservation TTL bounds,
// and the sweep interval. Tenant business configuration (spec §6.1 — weekly
// availability, booking limits, pricing) is supplied by the external config
// collaborator and is out of this package's scope.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the engine's bootstrap settings.
type Config struct {
	AppEnv string
	DBDSN  string

	OpsAddr      string
	OpsJWTSecret string

	// DefaultReservationTTL is used when a caller of createReservation does not
	// specify one. MinReservationTTL/MaxReservationTTL bound the value a caller
	// may request (spec §4.4: "ttl ≥ 5 min & ≤ 30 min (default 15)").
	DefaultReservationTTL time.Duration
	MinReservationTTL     time.Duration
	MaxReservationTTL     time.Duration
	// MaxReservationLifetime is the hard ceiling extendReservation may never
	// push a reservation past, counted from its creation (spec §9 open question).
	MaxReservationLifetime time.Duration

	// SweepInterval governs how often cleanupExpired runs via cron (spec §4.4:
	// "Intended to run every 1-5 minutes").
	SweepInterval time.Duration
}

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg := &Config{
		AppEnv:                 getEnvOrDefault("APP_ENV", "local"),
		OpsAddr:                getEnvOrDefault("OPS_ADDR", ":8090"),
		DefaultReservationTTL:  15 * time.Minute,
		MinReservationTTL:      5 * time.Minute,
		MaxReservationTTL:      30 * time.Minute,
		MaxReservationLifetime: 75 * time.Minute,
		SweepInterval:          2 * time.Minute,
	}

	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("config: DB_DSN is required")
	}

	cfg.OpsJWTSecret = os.Getenv("OPS_JWT_SECRET")
	if cfg.OpsJWTSecret == "" {
		return nil, fmt.Errorf("config: OPS_JWT_SECRET is required")
	}

	if v, ok := os.LookupEnv("RESERVATION_DEFAULT_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid RESERVATION_DEFAULT_TTL: %w", err)
		}
		cfg.DefaultReservationTTL = ttl
	}
	if v, ok := os.LookupEnv("SWEEP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}
