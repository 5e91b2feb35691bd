package audit

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so Append can run
// either standalone or as part of a caller's larger transaction (every
// appointment mutation in spec §4.5 writes its audit entry in the same
// transaction as the state change it describes).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgx.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Repository persists audit entries.
type Repository interface {
	Append(ctx context.Context, q Querier, e *Entry) error
	History(ctx context.Context, appointmentID string) ([]Entry, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository builds a Repository. pool is used for read-side History
// queries; Append takes its Querier explicitly so it can join the caller's
// transaction.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Append(ctx context.Context, q Querier, e *Entry) error {
	query, args, err := psql.Insert("audit_logs").
		Columns("tenant_id", "appointment_id", "action", "actor_id", "before_state", "after_state").
		Values(e.TenantID, e.AppointmentID, string(e.Action), nullableStr(e.ActorID), e.Before, e.After).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("audit: build append query: %w", err)
	}
	if err := q.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

func (r *pgxRepository) History(ctx context.Context, appointmentID string) ([]Entry, error) {
	query, args, err := psql.Select("id", "tenant_id", "appointment_id", "action", "actor_id", "before_state", "after_state", "created_at").
		From("audit_logs").
		Where(squirrel.Eq{"appointment_id": appointmentID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("audit: build history query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var actorID *string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.AppointmentID, &e.Action, &actorID, &e.Before, &e.After, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan history: %w", err)
		}
		if actorID != nil {
			e.ActorID = *actorID
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
