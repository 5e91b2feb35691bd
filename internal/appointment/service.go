package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rivo-booking/engine/internal/actor"
	"github.com/rivo-booking/engine/internal/audit"
	"github.com/rivo-booking/engine/internal/bookingrules"
	"github.com/rivo-booking/engine/internal/grain"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
	"github.com/rivo-booking/engine/internal/reservation"
)

// Service implements the appointment manager's public operations
// (spec §4.5).
type Service struct {
	repo         Repository
	audit        audit.Repository
	reservations *reservation.Service
	log          *zap.Logger
	now          func() time.Time
}

// NewService builds a Service.
func NewService(repo Repository, auditRepo audit.Repository, reservations *reservation.Service, log *zap.Logger) *Service {
	return &Service{repo: repo, audit: auditRepo, reservations: reservations, log: log, now: time.Now}
}

// CommitReservation implements spec §4.5's commitReservation: claim the
// reservation, insert the confirmed appointment, and write its audit entry,
// all inside one transaction. The claim (an atomic delete-if-live) is the
// first statement in that transaction, so a concurrent second commit for the
// same reservation id finds nothing left to claim and fails instead of also
// succeeding (spec §8 round-trip law: reserve→commit yields exactly one
// appointment and zero reservations for that id).
func (s *Service) CommitReservation(ctx context.Context, reservationID string, customerID string, guest *GuestContact, guestAccessTTL time.Duration, act actor.Actor) (*Appointment, error) {
	var result *Appointment

	err := s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		res, err := s.reservations.ClaimLocked(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, reservation.ErrNotFound) {
				return apperror.New(apperror.KindReservationInvalid, "reservation is invalid or expired")
			}
			return err
		}

		a := &Appointment{
			TenantID:      res.TenantID,
			ServiceID:     res.ServiceID,
			SlotStart:     res.SlotStart,
			SlotEnd:       res.SlotEnd,
			Status:        StatusConfirmed,
			Version:       1,
			CustomerID:    customerID,
			Guest:         guest,
			ReservationID: res.ID,
		}

		if guest != nil && guestAccessTTL > 0 {
			token, hash, err := generateGuestToken()
			if err != nil {
				return err
			}
			a.GuestTokenHash = hash
			expires := s.now().Add(guestAccessTTL)
			a.GuestTokenExpiresAt = &expires
			// Only the token's hash is persisted; the plaintext token is neither
			// stored nor returned to the caller.
			s.log.Debug("guest access token generated", zap.String("reservation_id", res.ID), zap.Int("token_len", len(token)))
		}

		if err := s.repo.InsertConfirmed(ctx, tx, a); err != nil {
			return err
		}
		if err := appendAudit(ctx, s.audit, tx, a.TenantID, a.ID, audit.ActionCreated, act, nil, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("appointment: commit reservation: %w", err)
	}

	s.log.Info("appointment committed", zap.String("appointment_id", result.ID), zap.String("booking_code", result.BookingCode))
	return result, nil
}

// CreateManualAppointment implements spec §4.5's createManualAppointment
// (operator path): idempotent on idempotencyKey, capacity-checked under the
// same transaction as the insert.
func (s *Service) CreateManualAppointment(ctx context.Context, tenantID, serviceID string, slotStart, slotEnd time.Time, guest *GuestContact, idempotencyKey string, act actor.Actor) (*Appointment, error) {
	if !grain.AlignedToGrain(slotStart) || !grain.AlignedToGrain(slotEnd) {
		return nil, apperror.New(apperror.KindInvalidInput, "slotStart and slotEnd must both be aligned to the 5-minute grain")
	}
	if idempotencyKey != "" {
		if existing, err := s.repo.GetByIdempotencyKey(ctx, tenantID, idempotencyKey); err == nil {
			return existing, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("appointment: create manual: %w", err)
		}
	}

	a := &Appointment{
		TenantID:       tenantID,
		ServiceID:      serviceID,
		SlotStart:      slotStart,
		SlotEnd:        slotEnd,
		Status:         StatusConfirmed,
		Version:        1,
		Guest:          guest,
		IdempotencyKey: idempotencyKey,
	}

	err := s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		used, err := s.repo.CountOverlapping(ctx, tx, tenantID, serviceID, slotStart, slotEnd, "")
		if err != nil {
			return err
		}
		// CountOverlapping already excludes nothing of this not-yet-existing
		// row; the trigger (C6) is the final backstop if this check races.
		capacity, err := maxCapacityFor(ctx, tx, serviceID)
		if err != nil {
			return err
		}
		if capacity-used < 1 {
			return apperror.New(apperror.KindNoCapacity, "no remaining capacity for this slot")
		}

		if err := s.repo.InsertConfirmed(ctx, tx, a); err != nil {
			return err
		}
		return appendAudit(ctx, s.audit, tx, a.TenantID, a.ID, audit.ActionCreated, act, nil, a)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("manual appointment created", zap.String("appointment_id", a.ID), zap.String("actor", act.ID))
	return a, nil
}

// UpdateParams bundles updateAppointment's optional mutations
// (spec §4.5).
type UpdateParams struct {
	ID              string
	ExpectedVersion int
	NewSlotStart    *time.Time
	NewSlotEnd      *time.Time
	NewServiceID    *string
	NewStatus       *Status
	Actor           actor.Actor

	// BookingRules, when non-nil, is applied to the new interval (spec §4.7);
	// nil skips booking-time validation entirely (e.g. a pure status change).
	BookingRules *bookingrules.Params
}

// UpdateAppointment implements spec §4.5's updateAppointment: pessimistic
// row lock, optimistic version check, capacity recheck excluding the row's
// own occupancy, and a conditional versioned write.
func (s *Service) UpdateAppointment(ctx context.Context, p UpdateParams) (*Appointment, error) {
	var result *Appointment

	err := s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		before, err := s.repo.LockForUpdate(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if before.Version != p.ExpectedVersion {
			return apperror.Conflict(before.Version)
		}

		after := *before
		timeOrServiceChanged := false
		if p.NewSlotStart != nil {
			after.SlotStart = *p.NewSlotStart
			timeOrServiceChanged = true
		}
		if p.NewSlotEnd != nil {
			after.SlotEnd = *p.NewSlotEnd
			timeOrServiceChanged = true
		}
		if p.NewServiceID != nil {
			after.ServiceID = *p.NewServiceID
			timeOrServiceChanged = true
		}
		if p.NewStatus != nil {
			after.Status = *p.NewStatus
		}

		if timeOrServiceChanged {
			if !grain.AlignedToGrain(after.SlotStart) || !grain.AlignedToGrain(after.SlotEnd) {
				return apperror.New(apperror.KindInvalidInput, "slotStart and slotEnd must both be aligned to the 5-minute grain")
			}
			if p.BookingRules != nil {
				if err := bookingrules.Validate(*p.BookingRules); err != nil {
					return err
				}
			}
			used, err := s.repo.CountOverlapping(ctx, tx, after.TenantID, after.ServiceID, after.SlotStart, after.SlotEnd, before.ID)
			if err != nil {
				return err
			}
			capacity, err := maxCapacityFor(ctx, tx, after.ServiceID)
			if err != nil {
				return err
			}
			if used >= capacity {
				return apperror.New(apperror.KindNoCapacity, "no remaining capacity for the requested interval")
			}
		}

		ok, err := s.repo.UpdateVersioned(ctx, tx, &after, p.ExpectedVersion)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict(before.Version)
		}

		if err := appendAudit(ctx, s.audit, tx, after.TenantID, after.ID, audit.ActionModified, p.Actor, before, &after); err != nil {
			return err
		}
		result = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelAppointment implements spec §4.5's cancelAppointment: locked read,
// soft delete, audit entry. Cancellation frees capacity immediately because
// the capacity queries exclude soft-deleted/non-confirmed rows.
func (s *Service) CancelAppointment(ctx context.Context, id string, act actor.Actor) error {
	return s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		before, err := s.repo.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if before.Status == StatusCanceled {
			return apperror.New(apperror.KindAlreadyCanceled, "appointment is already canceled")
		}

		now := s.now()
		ok, err := s.repo.CancelLocked(ctx, tx, id, now, before.Version)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict(before.Version)
		}

		after := *before
		after.Status = StatusCanceled
		after.DeletedAt = &now
		return appendAudit(ctx, s.audit, tx, before.TenantID, before.ID, audit.ActionCanceled, act, before, &after)
	})
}

// GetAppointment implements spec §4.5's getAppointment.
func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAppointments implements spec §4.5's listAppointments.
func (s *Service) ListAppointments(ctx context.Context, filter Filter) ([]*Appointment, error) {
	return s.repo.List(ctx, filter)
}

// History returns the append-only lifecycle log for an appointment
// (spec SPEC_FULL.md §12.2).
func (s *Service) History(ctx context.Context, appointmentID string) ([]audit.Entry, error) {
	return s.audit.History(ctx, appointmentID)
}

func maxCapacityFor(ctx context.Context, tx pgx.Tx, serviceID string) (int, error) {
	var capacity int
	err := tx.QueryRow(ctx, "SELECT max_simultaneous_bookings FROM services WHERE id = $1", serviceID).Scan(&capacity)
	if err != nil {
		return 0, fmt.Errorf("appointment: lookup service capacity: %w", err)
	}
	return capacity, nil
}

func appendAudit(ctx context.Context, repo audit.Repository, tx pgx.Tx, tenantID, appointmentID string, action audit.Action, act actor.Actor, before, after interface{}) error {
	beforeJSON, err := marshalState(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalState(after)
	if err != nil {
		return err
	}
	return repo.Append(ctx, tx, &audit.Entry{
		TenantID:      tenantID,
		AppointmentID: appointmentID,
		Action:        action,
		ActorID:       act.ID,
		Before:        beforeJSON,
		After:         afterJSON,
	})
}

func marshalState(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("appointment: marshal audit state: %w", err)
	}
	return b, nil
}

// generateGuestToken returns a fresh random token and its bcrypt hash for a
// guest's manage-booking link (spec §3 "optional guest access token
// (hashed)").
func generateGuestToken() (plaintext, hash string, err error) {
	raw, err := randomToken(24)
	if err != nil {
		return "", "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("appointment: hash guest token: %w", err)
	}
	return raw, string(hashed), nil
}
