package appointment

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

// Filter narrows listAppointments (spec §4.5 "listAppointments(tenantId, filters)").
type Filter struct {
	TenantID  string
	ServiceID string
	Status    Status
	From      *time.Time
	To        *time.Time
}

// Repository persists appointments.
type Repository interface {
	// WithTx runs fn inside a transaction, committing on nil error and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error

	// InsertConfirmed inserts a into the transaction, retrying the booking
	// code on a unique-constraint collision (spec §6.3).
	InsertConfirmed(ctx context.Context, tx pgx.Tx, a *Appointment) error

	GetByID(ctx context.Context, id string) (*Appointment, error)
	GetByIdempotencyKey(ctx context.Context, tenantID, idempotencyKey string) (*Appointment, error)

	// LockForUpdate reads a row with SELECT ... FOR UPDATE inside tx
	// (spec §4.5 "pessimistic row lock").
	LockForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Appointment, error)

	// UpdateVersioned performs the conditional
	// UPDATE ... WHERE id = ? AND version = expectedVersion write
	// (spec §4.5); rowsAffected == 0 signals a lost race.
	UpdateVersioned(ctx context.Context, tx pgx.Tx, a *Appointment, expectedVersion int) (bool, error)

	CancelLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time, expectedVersion int) (bool, error)

	CountOverlapping(ctx context.Context, tx pgx.Tx, tenantID, serviceID string, start, end time.Time, excludeAppointmentID string) (int, error)

	List(ctx context.Context, filter Filter) ([]*Appointment, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository builds a Repository backed by a pgx connection pool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointment: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op if Commit already succeeded
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const maxBookingCodeAttempts = 10

func (r *pgxRepository) InsertConfirmed(ctx context.Context, tx pgx.Tx, a *Appointment) error {
	for attempt := 0; attempt < maxBookingCodeAttempts; attempt++ {
		code, err := generateBookingCode()
		if err != nil {
			return err
		}
		a.BookingCode = code

		query, args, err := insertQuery(a)
		if err != nil {
			return fmt.Errorf("appointment: build insert query: %w", err)
		}

		err = tx.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "idx_appointments_booking_code" {
			continue // collision on booking_code only; retry with a fresh code
		}
		return fmt.Errorf("appointment: insert: %w", err)
	}
	return fmt.Errorf("appointment: exhausted booking code attempts")
}

func insertQuery(a *Appointment) (string, []interface{}, error) {
	b := psql.Insert("appointments").
		Columns("tenant_id", "service_id", "booking_code", "slot_start", "slot_end", "status",
			"customer_id", "guest_name", "guest_email", "guest_phone",
			"guest_access_token_hash", "guest_access_token_expires_at",
			"version", "reservation_id", "reschedule_of", "idempotency_key").
		Suffix("RETURNING id, created_at, updated_at")

	var guestName, guestEmail, guestPhone interface{}
	if a.Guest != nil {
		guestName, guestEmail, guestPhone = a.Guest.Name, a.Guest.Email, a.Guest.Phone
	}

	return b.Values(
		a.TenantID, a.ServiceID, a.BookingCode, a.SlotStart, a.SlotEnd, string(a.Status),
		nullableStr(a.CustomerID), guestName, guestEmail, guestPhone,
		nullableStr(a.GuestTokenHash), a.GuestTokenExpiresAt,
		a.Version, nullableStr(a.ReservationID), nullableStr(a.RescheduleOfID), nullableStr(a.IdempotencyKey),
	).ToSql()
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var selectColumns = []string{
	"id", "tenant_id", "service_id", "booking_code", "slot_start", "slot_end", "status",
	"customer_id", "guest_name", "guest_email", "guest_phone",
	"guest_access_token_hash", "guest_access_token_expires_at",
	"version", "reservation_id", "reschedule_of", "idempotency_key",
	"created_at", "updated_at", "deleted_at",
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var customerID, guestName, guestEmail, guestPhone, guestTokenHash, reservationID, rescheduleOf, idempotencyKey *string

	err := row.Scan(&a.ID, &a.TenantID, &a.ServiceID, &a.BookingCode, &a.SlotStart, &a.SlotEnd, &a.Status,
		&customerID, &guestName, &guestEmail, &guestPhone,
		&guestTokenHash, &a.GuestTokenExpiresAt,
		&a.Version, &reservationID, &rescheduleOf, &idempotencyKey,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointment: scan: %w", err)
	}

	if customerID != nil {
		a.CustomerID = *customerID
	}
	if guestTokenHash != nil {
		a.GuestTokenHash = *guestTokenHash
	}
	if reservationID != nil {
		a.ReservationID = *reservationID
	}
	if rescheduleOf != nil {
		a.RescheduleOfID = *rescheduleOf
	}
	if idempotencyKey != nil {
		a.IdempotencyKey = *idempotencyKey
	}
	if guestName != nil || guestEmail != nil || guestPhone != nil {
		g := &GuestContact{}
		if guestName != nil {
			g.Name = *guestName
		}
		if guestEmail != nil {
			g.Email = *guestEmail
		}
		if guestPhone != nil {
			g.Phone = *guestPhone
		}
		a.Guest = g
	}
	return &a, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query, args, err := psql.Select(selectColumns...).From("appointments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("appointment: build get query: %w", err)
	}
	return scanAppointment(r.pool.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) GetByIdempotencyKey(ctx context.Context, tenantID, idempotencyKey string) (*Appointment, error) {
	query, args, err := psql.Select(selectColumns...).From("appointments").
		Where(squirrel.Eq{"tenant_id": tenantID, "idempotency_key": idempotencyKey}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("appointment: build get-by-key query: %w", err)
	}
	return scanAppointment(r.pool.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Appointment, error) {
	query, args, err := psql.Select(selectColumns...).From("appointments").
		Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("appointment: build lock query: %w", err)
	}
	return scanAppointment(tx.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) UpdateVersioned(ctx context.Context, tx pgx.Tx, a *Appointment, expectedVersion int) (bool, error) {
	query, args, err := psql.Update("appointments").
		Set("service_id", a.ServiceID).
		Set("slot_start", a.SlotStart).
		Set("slot_end", a.SlotEnd).
		Set("status", string(a.Status)).
		Set("reschedule_of", nullableStr(a.RescheduleOfID)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": a.ID, "version": expectedVersion}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("appointment: build update query: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&a.Version, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("appointment: update: %w", err)
	}
	return true, nil
}

func (r *pgxRepository) CancelLocked(ctx context.Context, tx pgx.Tx, id string, now time.Time, expectedVersion int) (bool, error) {
	query, args, err := psql.Update("appointments").
		Set("status", string(StatusCanceled)).
		Set("deleted_at", now).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("appointment: build cancel query: %w", err)
	}
	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("appointment: cancel: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgxRepository) CountOverlapping(ctx context.Context, tx pgx.Tx, tenantID, serviceID string, start, end time.Time, excludeAppointmentID string) (int, error) {
	sql := `
		SELECT count(*) FROM appointments
		WHERE tenant_id = $1 AND service_id = $2 AND status = 'confirmed' AND deleted_at IS NULL
		  AND slot_start < $4 AND $3 < slot_end`
	args := []interface{}{tenantID, serviceID, start, end}
	if excludeAppointmentID != "" {
		sql += " AND id != $5"
		args = append(args, excludeAppointmentID)
	}

	var reservationsSQL = `
		SELECT count(*) FROM reservations
		WHERE tenant_id = $1 AND service_id = $2 AND expires_at > now()
		  AND slot_start < $4 AND $3 < slot_end`

	var confirmed, live int
	if err := tx.QueryRow(ctx, sql, args...).Scan(&confirmed); err != nil {
		return 0, fmt.Errorf("appointment: count overlapping appointments: %w", err)
	}
	if err := tx.QueryRow(ctx, reservationsSQL, tenantID, serviceID, start, end).Scan(&live); err != nil {
		return 0, fmt.Errorf("appointment: count overlapping reservations: %w", err)
	}
	return confirmed + live, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Appointment, error) {
	q := psql.Select(selectColumns...).From("appointments").Where(squirrel.Eq{"tenant_id": filter.TenantID})
	if filter.ServiceID != "" {
		q = q.Where(squirrel.Eq{"service_id": filter.ServiceID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"slot_start": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"slot_end": *filter.To})
	}
	q = q.OrderBy("slot_start ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("appointment: build list query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointment: list: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
