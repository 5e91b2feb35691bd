package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository persists the weekly template and per-date exceptions.
type Repository interface {
	ListWeekly(ctx context.Context, tenantID string) ([]Weekly, error)
	UpsertWeekly(ctx context.Context, w *Weekly) error

	ListExceptions(ctx context.Context, tenantID string, from, to time.Time) ([]Exception, error)
	UpsertException(ctx context.Context, e *Exception) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository builds a Repository backed by a pgx connection pool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) ListWeekly(ctx context.Context, tenantID string) ([]Weekly, error) {
	query, args, err := psql.Select("id", "tenant_id", "weekday", "enabled", "intervals").
		From("availability_weekly").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("weekday ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("availability: build list weekly query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: list weekly: %w", err)
	}
	defer rows.Close()

	var out []Weekly
	for rows.Next() {
		var w Weekly
		var weekday int
		var raw string
		if err := rows.Scan(&w.ID, &w.TenantID, &weekday, &w.Enabled, &raw); err != nil {
			return nil, fmt.Errorf("availability: scan weekly: %w", err)
		}
		w.Weekday = time.Weekday(weekday)
		w.Intervals = decodeIntervals(raw)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *pgxRepository) UpsertWeekly(ctx context.Context, w *Weekly) error {
	query, args, err := psql.Insert("availability_weekly").
		Columns("tenant_id", "weekday", "enabled", "intervals").
		Values(w.TenantID, int(w.Weekday), w.Enabled, encodeIntervals(w.Intervals)).
		Suffix("ON CONFLICT (tenant_id, weekday) DO UPDATE SET enabled = EXCLUDED.enabled, intervals = EXCLUDED.intervals RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("availability: build upsert weekly query: %w", err)
	}
	return r.pool.QueryRow(ctx, query, args...).Scan(&w.ID)
}

func (r *pgxRepository) ListExceptions(ctx context.Context, tenantID string, from, to time.Time) ([]Exception, error) {
	query, args, err := psql.Select("id", "tenant_id", "exception_date", "closed", "open_time", "close_time", "reason").
		From("availability_exceptions").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.GtOrEq{"exception_date": from}).
		Where(squirrel.LtOrEq{"exception_date": to}).
		OrderBy("exception_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("availability: build list exceptions query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: list exceptions: %w", err)
	}
	defer rows.Close()

	var out []Exception
	for rows.Next() {
		var e Exception
		var open, closeTime, reason *string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Date, &e.Closed, &open, &closeTime, &reason); err != nil {
			return nil, fmt.Errorf("availability: scan exception: %w", err)
		}
		if open != nil {
			e.Open = *open
		}
		if closeTime != nil {
			e.Close = *closeTime
		}
		if reason != nil {
			e.Reason = *reason
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgxRepository) UpsertException(ctx context.Context, e *Exception) error {
	query, args, err := psql.Insert("availability_exceptions").
		Columns("tenant_id", "exception_date", "closed", "open_time", "close_time", "reason").
		Values(e.TenantID, e.Date, e.Closed, nullableStr(e.Open), nullableStr(e.Close), nullableStr(e.Reason)).
		Suffix(`ON CONFLICT (tenant_id, exception_date) DO UPDATE SET
			closed = EXCLUDED.closed, open_time = EXCLUDED.open_time,
			close_time = EXCLUDED.close_time, reason = EXCLUDED.reason
			RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("availability: build upsert exception query: %w", err)
	}
	return r.pool.QueryRow(ctx, query, args...).Scan(&e.ID)
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeIntervals/decodeIntervals store Interval slices as a simple
// "open-close,open-close" text column, avoiding a JSON dependency for a
// handful of HH:MM pairs per weekday.
func encodeIntervals(ivs []Interval) string {
	parts := make([]string, len(ivs))
	for i, iv := range ivs {
		parts[i] = iv.Open + "-" + iv.Close
	}
	return strings.Join(parts, ",")
}

func decodeIntervals(raw string) []Interval {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]Interval, 0, len(parts))
	for _, p := range parts {
		hm := strings.SplitN(p, "-", 2)
		if len(hm) != 2 {
			continue
		}
		out = append(out, Interval{Open: hm[0], Close: hm[1]})
	}
	return out
}
