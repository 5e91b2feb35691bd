package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository persists reservations and enforces the capacity invariant
// under a per-slot advisory lock (spec §4.4).
type Repository interface {
	GetByIdempotencyKey(ctx context.Context, tenantID, idempotencyKey string) (*Reservation, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// CreateLocked acquires the slot advisory lock, checks capacity, and
	// inserts r, all within one transaction.
	CreateLocked(ctx context.Context, r *Reservation, maxSimultaneousBookings int, now time.Time) error

	Extend(ctx context.Context, id string, newExpiresAt time.Time) error
	Delete(ctx context.Context, id string) error

	// ClaimLocked deletes reservation id within tx iff it has not yet
	// expired as of now, returning the deleted row. The delete itself is
	// the atomic claim: a concurrent commitReservation racing on the same
	// id finds zero rows and fails instead of also succeeding.
	ClaimLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time) (*Reservation, error)

	// CountOverlapping counts confirmed appointments plus live reservations
	// overlapping [start, end) for (tenantID, serviceID), optionally
	// excluding one reservation id (used during its own capacity check).
	CountOverlapping(ctx context.Context, tenantID, serviceID string, start, end, now time.Time, excludeReservationID string) (int, error)

	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	HealthSnapshot(ctx context.Context, now time.Time) (Health, error)

	// ListLive returns every reservation for (tenantID, serviceID) whose
	// [SlotStart, SlotEnd) overlaps [from, to) and has not yet expired as of
	// now, for merging into the slot generator's occupant list.
	ListLive(ctx context.Context, tenantID, serviceID string, from, to, now time.Time) ([]Reservation, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository builds a Repository backed by a pgx connection pool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByIdempotencyKey(ctx context.Context, tenantID, idempotencyKey string) (*Reservation, error) {
	query, args, err := psql.Select("id", "tenant_id", "service_id", "slot_start", "slot_end", "idempotency_key", "expires_at", "created_at").
		From("reservations").
		Where(squirrel.Eq{"tenant_id": tenantID, "idempotency_key": idempotencyKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("reservation: build get-by-key query: %w", err)
	}
	return scanOne(r.pool.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	query, args, err := psql.Select("id", "tenant_id", "service_id", "slot_start", "slot_end", "idempotency_key", "expires_at", "created_at").
		From("reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("reservation: build get query: %w", err)
	}
	return scanOne(r.pool.QueryRow(ctx, query, args...))
}

func scanOne(row pgx.Row) (*Reservation, error) {
	var res Reservation
	err := row.Scan(&res.ID, &res.TenantID, &res.ServiceID, &res.SlotStart, &res.SlotEnd,
		&res.IdempotencyKey, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservation: scan: %w", err)
	}
	return &res, nil
}

// CreateLocked implements spec §4.4's createReservation contention control:
// acquire the slot's advisory lock inside a transaction, recheck capacity
// under that lock, then insert. A unique-constraint race on idempotencyKey
// (a concurrent duplicate attempt) is resolved by re-reading the winner.
func (r *pgxRepository) CreateLocked(ctx context.Context, res *Reservation, maxSimultaneousBookings int, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reservation: begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			// Best-effort; the transaction is already gone from the
			// connection's perspective once Commit succeeded.
			_ = rbErr
		}
	}()

	key := lockKey(res.TenantID, res.ServiceID, res.SlotStart.Unix())
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return fmt.Errorf("reservation: acquire slot lock: %w", err)
	}

	used, err := countOverlappingTx(ctx, tx, res.TenantID, res.ServiceID, res.SlotStart, res.SlotEnd, now, "")
	if err != nil {
		return err
	}
	if used >= maxSimultaneousBookings {
		return ErrSlotUnavailable
	}

	query, args, err := psql.Insert("reservations").
		Columns("tenant_id", "service_id", "slot_start", "slot_end", "idempotency_key", "expires_at").
		Values(res.TenantID, res.ServiceID, res.SlotStart, res.SlotEnd, res.IdempotencyKey, res.ExpiresAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("reservation: build insert query: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errIdempotencyRace
		}
		return fmt.Errorf("reservation: insert: %w", err)
	}

	return tx.Commit(ctx)
}

// errIdempotencyRace signals CreateLocked lost a race on idempotencyKey to a
// concurrent duplicate attempt; the caller re-reads the winning row.
var errIdempotencyRace = errors.New("reservation: idempotency key race")

func (r *pgxRepository) ClaimLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time) (*Reservation, error) {
	query, args, err := psql.Delete("reservations").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Gt{"expires_at": now}).
		Suffix("RETURNING id, tenant_id, service_id, slot_start, slot_end, idempotency_key, expires_at, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("reservation: build claim query: %w", err)
	}
	return scanOne(tx.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) Extend(ctx context.Context, id string, newExpiresAt time.Time) error {
	query, args, err := psql.Update("reservations").
		Set("expires_at", newExpiresAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("reservation: build extend query: %w", err)
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reservation: extend: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("reservations").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("reservation: build delete query: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("reservation: delete: %w", err)
	}
	return nil
}

func (r *pgxRepository) CountOverlapping(ctx context.Context, tenantID, serviceID string, start, end, now time.Time, excludeReservationID string) (int, error) {
	row := r.pool.QueryRow(ctx, countOverlappingSQL(excludeReservationID != ""),
		countOverlappingArgs(tenantID, serviceID, start, end, now, excludeReservationID)...)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("reservation: count overlapping: %w", err)
	}
	return n, nil
}

func countOverlappingTx(ctx context.Context, tx pgx.Tx, tenantID, serviceID string, start, end, now time.Time, excludeReservationID string) (int, error) {
	row := tx.QueryRow(ctx, countOverlappingSQL(excludeReservationID != ""),
		countOverlappingArgs(tenantID, serviceID, start, end, now, excludeReservationID)...)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("reservation: count overlapping: %w", err)
	}
	return n, nil
}

// countOverlappingSQL implements the I-CAP count: confirmed, non-deleted
// appointments plus live reservations overlapping [start, end), half-open
// (spec §3 I-CAP).
func countOverlappingSQL(exclude bool) string {
	sql := `
		SELECT
			(SELECT count(*) FROM appointments
			 WHERE tenant_id = $1 AND service_id = $2 AND status = 'confirmed'
			   AND deleted_at IS NULL AND slot_start < $4 AND slot_end > $3)
			+
			(SELECT count(*) FROM reservations
			 WHERE tenant_id = $1 AND service_id = $2
			   AND expires_at > $5 AND slot_start < $4 AND slot_end > $3`
	if exclude {
		sql += ` AND id != $6`
	}
	sql += `)`
	return sql
}

func countOverlappingArgs(tenantID, serviceID string, start, end, now time.Time, excludeReservationID string) []interface{} {
	args := []interface{}{tenantID, serviceID, start, end, now}
	if excludeReservationID != "" {
		args = append(args, excludeReservationID)
	}
	return args
}

func (r *pgxRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query, args, err := psql.Delete("reservations").Where(squirrel.LtOrEq{"expires_at": now}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("reservation: build cleanup query: %w", err)
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reservation: cleanup: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (r *pgxRepository) ListLive(ctx context.Context, tenantID, serviceID string, from, to, now time.Time) ([]Reservation, error) {
	query, args, err := psql.Select("id", "tenant_id", "service_id", "slot_start", "slot_end", "idempotency_key", "expires_at", "created_at").
		From("reservations").
		Where(squirrel.Eq{"tenant_id": tenantID, "service_id": serviceID}).
		Where(squirrel.Gt{"expires_at": now}).
		Where(squirrel.Lt{"slot_start": to}).
		Where(squirrel.Gt{"slot_end": from}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("reservation: build list live query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reservation: list live: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.TenantID, &res.ServiceID, &res.SlotStart, &res.SlotEnd,
			&res.IdempotencyKey, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("reservation: scan list live: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *pgxRepository) HealthSnapshot(ctx context.Context, now time.Time) (Health, error) {
	var h Health
	var medianSeconds *float64
	var oldestLiveCreatedAt *time.Time

	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE expires_at > $1),
			count(*) FILTER (WHERE expires_at <= $1),
			percentile_cont(0.5) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM (expires_at - created_at))) FILTER (WHERE expires_at > $1),
			min(created_at) FILTER (WHERE expires_at > $1)
		FROM reservations`, now).Scan(&h.ActiveCount, &h.ExpiredCount, &medianSeconds, &oldestLiveCreatedAt)
	if err != nil {
		return Health{}, fmt.Errorf("reservation: health snapshot: %w", err)
	}

	if medianSeconds != nil {
		h.MedianTTL = time.Duration(*medianSeconds) * time.Second
	}
	if oldestLiveCreatedAt != nil {
		h.OldestLiveAge = now.Sub(*oldestLiveCreatedAt)
	}
	return h, nil
}
