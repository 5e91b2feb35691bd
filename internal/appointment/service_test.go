package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivo-booking/engine/internal/actor"
	"github.com/rivo-booking/engine/internal/audit"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
	"github.com/rivo-booking/engine/internal/reservation"
)

type fakeRepo struct {
	byID       map[string]*Appointment
	byKey      map[string]*Appointment
	n          int
	capacities map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*Appointment{}, byKey: map[string]*Appointment{}, capacities: map[string]int{}}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeRepo) InsertConfirmed(ctx context.Context, tx pgx.Tx, a *Appointment) error {
	f.n++
	a.ID = "appt-" + itoa(f.n)
	a.BookingCode = "RIVO-AAA-AAA-AAA"
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.byID[a.ID] = &cp
	if a.IdempotencyKey != "" {
		f.byKey[a.TenantID+"|"+a.IdempotencyKey] = &cp
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*Appointment, error) {
	if a, ok := f.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*Appointment, error) {
	if a, ok := f.byKey[tenantID+"|"+key]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Appointment, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) UpdateVersioned(ctx context.Context, tx pgx.Tx, a *Appointment, expectedVersion int) (bool, error) {
	cur, ok := f.byID[a.ID]
	if !ok || cur.Version != expectedVersion {
		return false, nil
	}
	a.Version = expectedVersion + 1
	a.UpdatedAt = time.Now()
	cp := *a
	f.byID[a.ID] = &cp
	return true, nil
}

func (f *fakeRepo) CancelLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time, expectedVersion int) (bool, error) {
	cur, ok := f.byID[id]
	if !ok || cur.Version != expectedVersion {
		return false, nil
	}
	cur.Status = StatusCanceled
	cur.DeletedAt = &now
	cur.Version++
	return true, nil
}

func (f *fakeRepo) CountOverlapping(ctx context.Context, tx pgx.Tx, tenantID, serviceID string, start, end time.Time, exclude string) (int, error) {
	n := 0
	for _, a := range f.byID {
		if a.ID == exclude || a.Status != StatusConfirmed {
			continue
		}
		if a.TenantID == tenantID && a.ServiceID == serviceID && a.SlotStart.Before(end) && start.Before(a.SlotEnd) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) List(ctx context.Context, filter Filter) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, nil
}

type fakeAudit struct{ entries []*audit.Entry }

func (f *fakeAudit) Append(ctx context.Context, q audit.Querier, e *audit.Entry) error {
	e.ID = "audit-1"
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) History(ctx context.Context, appointmentID string) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range f.entries {
		if e.AppointmentID == appointmentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeReservationRepo struct {
	res map[string]*reservation.Reservation
}

func (f *fakeReservationRepo) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*reservation.Reservation, error) {
	return nil, reservation.ErrNotFound
}
func (f *fakeReservationRepo) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	if r, ok := f.res[id]; ok {
		return r, nil
	}
	return nil, reservation.ErrNotFound
}
func (f *fakeReservationRepo) CreateLocked(ctx context.Context, r *reservation.Reservation, max int, now time.Time) error {
	return nil
}
func (f *fakeReservationRepo) Extend(ctx context.Context, id string, newExpiresAt time.Time) error {
	return nil
}
func (f *fakeReservationRepo) Delete(ctx context.Context, id string) error {
	delete(f.res, id)
	return nil
}
func (f *fakeReservationRepo) ClaimLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time) (*reservation.Reservation, error) {
	r, ok := f.res[id]
	if !ok || !r.Live(now) {
		return nil, reservation.ErrNotFound
	}
	delete(f.res, id)
	return r, nil
}
func (f *fakeReservationRepo) CountOverlapping(ctx context.Context, tenantID, serviceID string, start, end, now time.Time, exclude string) (int, error) {
	return 0, nil
}
func (f *fakeReservationRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
func (f *fakeReservationRepo) HealthSnapshot(ctx context.Context, now time.Time) (reservation.Health, error) {
	return reservation.Health{}, nil
}
func (f *fakeReservationRepo) ListLive(ctx context.Context, tenantID, serviceID string, from, to, now time.Time) ([]reservation.Reservation, error) {
	return nil, nil
}

func newTestService() (*Service, *fakeRepo, *fakeReservationRepo) {
	repo := newFakeRepo()
	aud := &fakeAudit{}
	resRepo := &fakeReservationRepo{res: map[string]*reservation.Reservation{}}
	resSvc := reservation.NewService(resRepo, zap.NewNop(), 5*time.Minute, 30*time.Minute, 15*time.Minute, 75*time.Minute)
	return NewService(repo, aud, resSvc, zap.NewNop()), repo, resRepo
}

func TestCommitReservationInsertsAppointmentAndDeletesReservation(t *testing.T) {
	svc, _, resRepo := newTestService()
	ctx := context.Background()
	now := time.Now().Add(time.Hour)

	resRepo.res["res-1"] = &reservation.Reservation{
		ID: "res-1", TenantID: "t1", ServiceID: "s1",
		SlotStart: now, SlotEnd: now.Add(30 * time.Minute),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	a, err := svc.CommitReservation(ctx, "res-1", "cust-1", nil, 0, actor.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, a.Status)
	assert.Equal(t, 1, a.Version)
	assert.NotEmpty(t, a.BookingCode)

	_, ok := resRepo.res["res-1"]
	assert.False(t, ok, "reservation should be deleted after commit")
}

func TestCommitReservationRejectsSecondCommitOfSameReservation(t *testing.T) {
	svc, _, resRepo := newTestService()
	ctx := context.Background()
	now := time.Now().Add(time.Hour)

	resRepo.res["res-1"] = &reservation.Reservation{
		ID: "res-1", TenantID: "t1", ServiceID: "s1",
		SlotStart: now, SlotEnd: now.Add(30 * time.Minute),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	_, err := svc.CommitReservation(ctx, "res-1", "cust-1", nil, 0, actor.SystemActor)
	require.NoError(t, err)

	_, err = svc.CommitReservation(ctx, "res-1", "cust-2", nil, 0, actor.SystemActor)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindReservationInvalid), "a second commit of an already-claimed reservation must fail, not produce a second appointment")
}

func TestCommitReservationRejectsExpired(t *testing.T) {
	svc, _, resRepo := newTestService()
	ctx := context.Background()

	resRepo.res["res-1"] = &reservation.Reservation{
		ID: "res-1", TenantID: "t1", ServiceID: "s1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	_, err := svc.CommitReservation(ctx, "res-1", "cust-1", nil, 0, actor.SystemActor)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindReservationInvalid))
}

func TestUpdateAppointmentDetectsVersionConflict(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	now := time.Now().Add(time.Hour)

	a := &Appointment{TenantID: "t1", ServiceID: "s1", SlotStart: now, SlotEnd: now.Add(30 * time.Minute), Status: StatusConfirmed, Version: 1}
	require.NoError(t, repo.InsertConfirmed(ctx, nil, a))

	_, err := svc.UpdateAppointment(ctx, UpdateParams{ID: a.ID, ExpectedVersion: 99, Actor: actor.SystemActor})
	require.Error(t, err)
	var ae *apperror.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperror.KindConflict, ae.Kind)
	assert.Equal(t, 1, ae.CurrentVersion)
}

func TestCancelAppointmentRejectsDoubleCancel(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	now := time.Now().Add(time.Hour)

	a := &Appointment{TenantID: "t1", ServiceID: "s1", SlotStart: now, SlotEnd: now.Add(30 * time.Minute), Status: StatusConfirmed, Version: 1}
	require.NoError(t, repo.InsertConfirmed(ctx, nil, a))

	require.NoError(t, svc.CancelAppointment(ctx, a.ID, actor.SystemActor))
	err := svc.CancelAppointment(ctx, a.ID, actor.SystemActor)
	assert.True(t, apperror.Is(err, apperror.KindAlreadyCanceled))
}
