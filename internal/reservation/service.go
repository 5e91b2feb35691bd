package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rivo-booking/engine/internal/grain"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
)

// Service implements the reservation manager's public operations
// (spec §4.4).
type Service struct {
	repo Repository
	log  *zap.Logger

	minTTL, maxTTL, defaultTTL time.Duration
	maxLifetime                time.Duration
	now                        func() time.Time
}

// NewService builds a Service. minTTL/maxTTL/defaultTTL bound createReservation's
// ttl argument; maxLifetime is the hard ceiling extendReservation may never
// push a reservation past, counted from its creation (spec §4.4, open
// question resolved in DESIGN.md: 75 minutes).
func NewService(repo Repository, log *zap.Logger, minTTL, maxTTL, defaultTTL, maxLifetime time.Duration) *Service {
	return &Service{
		repo: repo, log: log,
		minTTL: minTTL, maxTTL: maxTTL, defaultTTL: defaultTTL,
		maxLifetime: maxLifetime,
		now:         time.Now,
	}
}

// CreateReservation implements spec §4.4's createReservation: idempotent
// replay, per-slot advisory-lock contention control, and a capacity check
// performed under that lock.
func (s *Service) CreateReservation(ctx context.Context, tenantID, serviceID string, slotStart, slotEnd time.Time, idempotencyKey string, ttl time.Duration, maxSimultaneousBookings int) (*Reservation, error) {
	if idempotencyKey == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "idempotencyKey is required")
	}
	if !grain.AlignedToGrain(slotStart) || !grain.AlignedToGrain(slotEnd) {
		return nil, apperror.New(apperror.KindInvalidInput, "slotStart and slotEnd must both be aligned to the 5-minute grain")
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl < s.minTTL || ttl > s.maxTTL {
		return nil, apperror.New(apperror.KindInvalidInput, fmt.Sprintf("ttl must be between %s and %s", s.minTTL, s.maxTTL))
	}

	now := s.now()

	if existing, err := s.repo.GetByIdempotencyKey(ctx, tenantID, idempotencyKey); err == nil && existing.Live(now) {
		return existing, nil
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("reservation: create: %w", err)
	}

	const maxIdempotencyRaceRetries = 3
	for attempt := 0; ; attempt++ {
		res := &Reservation{
			TenantID:       tenantID,
			ServiceID:      serviceID,
			SlotStart:      slotStart,
			SlotEnd:        slotEnd,
			IdempotencyKey: idempotencyKey,
			ExpiresAt:      now.Add(ttl),
		}

		err := s.repo.CreateLocked(ctx, res, maxSimultaneousBookings, now)
		switch {
		case err == nil:
			s.log.Info("reservation created", zap.String("reservation_id", res.ID), zap.String("tenant_id", tenantID), zap.String("service_id", serviceID))
			return res, nil
		case errors.Is(err, ErrSlotUnavailable):
			return nil, apperror.Wrap(apperror.KindSlotUnavailable, "slot is at capacity", err)
		case errors.Is(err, errIdempotencyRace):
			winner, getErr := s.repo.GetByIdempotencyKey(ctx, tenantID, idempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("reservation: re-read after idempotency race: %w", getErr)
			}
			if winner.Live(now) {
				return winner, nil
			}
			// winner already expired: a third call with the same key after
			// expiry gets a fresh reservation (spec §8 scenario 3), not the
			// stale row. Clear it and retry the insert.
			if attempt >= maxIdempotencyRaceRetries {
				return nil, fmt.Errorf("reservation: create: exhausted retries after idempotency race on expired key")
			}
			if delErr := s.repo.Delete(ctx, winner.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
				return nil, fmt.Errorf("reservation: delete stale reservation after idempotency race: %w", delErr)
			}
			continue
		default:
			return nil, fmt.Errorf("reservation: create: %w", err)
		}
	}
}

// ValidateReservation implements spec §4.4's validateReservation: a
// non-expired lookup.
func (s *Service) ValidateReservation(ctx context.Context, id string) (*Reservation, bool, error) {
	res, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reservation: validate: %w", err)
	}
	if !res.Live(s.now()) {
		return res, false, nil
	}
	return res, true, nil
}

// ClaimLocked implements the atomic claim step commitReservation needs
// (spec §4.5): within the caller's own transaction, delete reservation id
// iff it is still live, and return the deleted row. A concurrent commit
// racing on the same id finds no row left to claim and gets ErrNotFound,
// so exactly one commit can ever succeed for a given reservation.
func (s *Service) ClaimLocked(ctx context.Context, tx pgx.Tx, id string) (*Reservation, error) {
	res, err := s.repo.ClaimLocked(ctx, tx, id, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservation: claim locked: %w", err)
	}
	return res, nil
}

// ExtendReservation implements spec §4.4's extendReservation: only extends a
// reservation that has not yet expired, and never past its configured
// maximum total lifetime from creation.
func (s *Service) ExtendReservation(ctx context.Context, id string, additional time.Duration) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reservation: extend: %w", err)
	}
	now := s.now()
	if !res.Live(now) {
		return nil, apperror.New(apperror.KindConflict, "reservation already expired")
	}

	newExpiry := res.ExpiresAt.Add(additional)
	if newExpiry.After(res.CreatedAt.Add(s.maxLifetime)) {
		return nil, apperror.Wrap(apperror.KindInvalidInput, "extension exceeds maximum reservation lifetime", ErrPastLifetimeCap)
	}

	if err := s.repo.Extend(ctx, id, newExpiry); err != nil {
		return nil, fmt.Errorf("reservation: extend: %w", err)
	}
	res.ExpiresAt = newExpiry
	return res, nil
}

// DeleteReservation implements spec §4.4's deleteReservation: unconditional
// row removal.
func (s *Service) DeleteReservation(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// GetAvailableCapacity implements spec §4.4's getAvailableCapacity.
func (s *Service) GetAvailableCapacity(ctx context.Context, tenantID, serviceID string, slotStart, slotEnd time.Time, maxSimultaneousBookings int) (int, error) {
	used, err := s.repo.CountOverlapping(ctx, tenantID, serviceID, slotStart, slotEnd, s.now(), "")
	if err != nil {
		return 0, fmt.Errorf("reservation: available capacity: %w", err)
	}
	remaining := maxSimultaneousBookings - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ListLive returns the live reservations overlapping [from, to) for a
// tenant/service, for the slot generator's occupant list.
func (s *Service) ListLive(ctx context.Context, tenantID, serviceID string, from, to time.Time) ([]Reservation, error) {
	out, err := s.repo.ListLive(ctx, tenantID, serviceID, from, to, s.now())
	if err != nil {
		return nil, fmt.Errorf("reservation: list live: %w", err)
	}
	return out, nil
}

// CleanupExpired implements spec §4.4's cleanupExpired, intended to be
// driven by a periodic job (spec §4.6 "Expired-reservation sweeper").
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("reservation: cleanup expired: %w", err)
	}
	if n > 0 {
		s.log.Info("cleaned up expired reservations", zap.Int("count", n))
	}
	return n, nil
}

// Health implements spec §4.4's health probes.
func (s *Service) Health(ctx context.Context) (Health, error) {
	h, err := s.repo.HealthSnapshot(ctx, s.now())
	if err != nil {
		return Health{}, fmt.Errorf("reservation: health: %w", err)
	}
	if !h.IsHealthy() {
		s.log.Warn("reservation health degraded",
			zap.Int("expired_count", h.ExpiredCount),
			zap.Duration("oldest_live_age", h.OldestLiveAge))
	}
	return h, nil
}
