package reservation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	byID  map[string]*Reservation
	byKey map[string]*Reservation
	nextN int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*Reservation{}, byKey: map[string]*Reservation{}}
}

func (f *fakeRepo) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*Reservation, error) {
	if r, ok := f.byKey[tenantID+"|"+key]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*Reservation, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) CreateLocked(ctx context.Context, r *Reservation, maxSimultaneousBookings int, now time.Time) error {
	if _, ok := f.byKey[r.TenantID+"|"+r.IdempotencyKey]; ok {
		return errIdempotencyRace
	}
	used, _ := f.CountOverlapping(ctx, r.TenantID, r.ServiceID, r.SlotStart, r.SlotEnd, now, "")
	if used >= maxSimultaneousBookings {
		return ErrSlotUnavailable
	}
	f.nextN++
	r.ID = fmt.Sprintf("res-%d", f.nextN)
	r.CreatedAt = now
	f.byID[r.ID] = r
	f.byKey[r.TenantID+"|"+r.IdempotencyKey] = r
	return nil
}

func (f *fakeRepo) Extend(ctx context.Context, id string, newExpiresAt time.Time) error {
	r, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.ExpiresAt = newExpiresAt
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if r, ok := f.byID[id]; ok {
		delete(f.byKey, r.TenantID+"|"+r.IdempotencyKey)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRepo) ClaimLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time) (*Reservation, error) {
	r, ok := f.byID[id]
	if !ok || !r.Live(now) {
		return nil, ErrNotFound
	}
	delete(f.byID, id)
	delete(f.byKey, r.TenantID+"|"+r.IdempotencyKey)
	return r, nil
}

func (f *fakeRepo) CountOverlapping(ctx context.Context, tenantID, serviceID string, start, end, now time.Time, excludeID string) (int, error) {
	n := 0
	for _, r := range f.byID {
		if r.ID == excludeID {
			continue
		}
		if r.TenantID != tenantID || r.ServiceID != serviceID {
			continue
		}
		if !r.Live(now) {
			continue
		}
		if r.SlotStart.Before(end) && start.Before(r.SlotEnd) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for id, r := range f.byID {
		if !r.Live(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListLive(ctx context.Context, tenantID, serviceID string, from, to, now time.Time) ([]Reservation, error) {
	var out []Reservation
	for _, r := range f.byID {
		if r.Live(now) && r.TenantID == tenantID && r.ServiceID == serviceID && r.SlotStart.Before(to) && from.Before(r.SlotEnd) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) HealthSnapshot(ctx context.Context, now time.Time) (Health, error) {
	var h Health
	for _, r := range f.byID {
		if r.Live(now) {
			h.ActiveCount++
		} else {
			h.ExpiredCount++
		}
	}
	return h, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, zap.NewNop(), 5*time.Minute, 30*time.Minute, 15*time.Minute, 75*time.Minute)
}

func TestCreateReservationIdempotentReplay(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	start := time.Now().Add(time.Hour).Truncate(5 * time.Minute)

	a, err := svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-1", 0, 1)
	require.NoError(t, err)

	b, err := svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-1", 0, 1)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
}

func TestCreateReservationRejectsAtCapacity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	start := time.Now().Add(time.Hour).Truncate(5 * time.Minute)

	_, err := svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-1", 0, 1)
	require.NoError(t, err)

	_, err = svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-2", 0, 1)
	require.Error(t, err)
}

func TestCreateReservationRejectsOutOfBoundsTTL(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	start := time.Now().Add(time.Hour).Truncate(5 * time.Minute)

	_, err := svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-1", time.Minute, 1)
	assert.Error(t, err)
}

func TestExtendReservationRespectsLifetimeCeiling(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	start := time.Now().Add(time.Hour).Truncate(5 * time.Minute)

	res, err := svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-1", 15*time.Minute, 1)
	require.NoError(t, err)

	_, err = svc.ExtendReservation(ctx, res.ID, 10*time.Minute)
	require.NoError(t, err)

	_, err = svc.ExtendReservation(ctx, res.ID, 55*time.Minute)
	assert.ErrorIs(t, err, ErrPastLifetimeCap)
}

func TestCreateReservationRetriesAfterIdempotencyRaceOnExpiredWinner(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	start := time.Now().Add(time.Hour).Truncate(5 * time.Minute)

	stale := &Reservation{
		TenantID: "t1", ServiceID: "s1",
		SlotStart: start, SlotEnd: start.Add(30 * time.Minute),
		IdempotencyKey: "key-1",
		ExpiresAt:      time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.CreateLocked(ctx, stale, 10, time.Now().Add(-20*time.Minute)))

	res, err := svc.CreateReservation(ctx, "t1", "s1", start, start.Add(30*time.Minute), "key-1", 0, 1)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, res.ID, "a call after expiry with the same key should get a fresh reservation, not the stale one")

	_, err = repo.GetByID(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound, "the stale reservation should have been deleted")
}

func TestCleanupExpiredRemovesOnlyExpired(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now()

	live := &Reservation{TenantID: "t1", ServiceID: "s1", ExpiresAt: now.Add(time.Hour), IdempotencyKey: "a"}
	expired := &Reservation{TenantID: "t1", ServiceID: "s1", ExpiresAt: now.Add(-time.Hour), IdempotencyKey: "b"}
	require.NoError(t, repo.CreateLocked(ctx, live, 10, now))
	require.NoError(t, repo.CreateLocked(ctx, expired, 10, now))

	n, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByID(ctx, live.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
