package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository persists tenants, categories and services.
type Repository interface {
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateTenantStatus(ctx context.Context, id string, status Status) error

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context, tenantID string) ([]*Category, error)

	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context, tenantID string) ([]*Service, error)
	UpdateService(ctx context.Context, s *Service) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository builds a Repository backed by a pgx connection pool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) CreateTenant(ctx context.Context, t *Tenant) error {
	query, args, err := psql.Insert("tenants").
		Columns("slug", "display_name", "timezone", "currency", "status").
		Values(t.Slug, t.DisplayName, t.Timezone, t.Currency, string(t.Status)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("tenant: build create query: %w", err)
	}
	return r.pool.QueryRow(ctx, query, args...).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *pgxRepository) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return r.scanOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return r.scanOne(ctx, squirrel.Eq{"slug": slug})
}

func (r *pgxRepository) scanOne(ctx context.Context, pred squirrel.Eq) (*Tenant, error) {
	query, args, err := psql.Select("id", "slug", "display_name", "timezone", "currency", "status", "created_at", "updated_at").
		From("tenants").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("tenant: build get query: %w", err)
	}
	var t Tenant
	var status string
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&t.ID, &t.Slug, &t.DisplayName, &t.Timezone, &t.Currency, &status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: get: %w", err)
	}
	t.Status = Status(status)
	return &t, nil
}

func (r *pgxRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query, args, err := psql.Select("1").From("tenants").Where(squirrel.Eq{"slug": slug}).ToSql()
	if err != nil {
		return false, fmt.Errorf("tenant: build slug exists query: %w", err)
	}
	var one int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("tenant: slug exists: %w", err)
	}
	return true, nil
}

func (r *pgxRepository) UpdateTenantStatus(ctx context.Context, id string, status Status) error {
	query, args, err := psql.Update("tenants").
		Set("status", string(status)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("tenant: build update status query: %w", err)
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("tenant: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) CreateCategory(ctx context.Context, c *Category) error {
	query, args, err := psql.Insert("categories").
		Columns("tenant_id", "name", "description", "sort_order").
		Values(c.TenantID, c.Name, c.Description, c.SortOrder).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("tenant: build create category query: %w", err)
	}
	return r.pool.QueryRow(ctx, query, args...).Scan(&c.ID)
}

func (r *pgxRepository) ListCategories(ctx context.Context, tenantID string) ([]*Category, error) {
	query, args, err := psql.Select("id", "tenant_id", "name", "description", "sort_order", "deleted_at").
		From("categories").
		Where(squirrel.Eq{"tenant_id": tenantID, "deleted_at": nil}).
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("tenant: build list categories query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tenant: list categories: %w", err)
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.SortOrder, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("tenant: scan category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *pgxRepository) CreateService(ctx context.Context, s *Service) error {
	query, args, err := psql.Insert("services").
		Columns("tenant_id", "category_id", "name", "duration_minutes", "price_minor", "color",
			"max_simultaneous_bookings", "buffer_before_minutes", "buffer_after_minutes", "sort_order", "enabled").
		Values(s.TenantID, s.CategoryID, s.Name, s.DurationMinutes, s.PriceMinor, s.Color,
			s.MaxSimultaneousBookings, s.BufferBeforeMinutes, s.BufferAfterMinutes, s.SortOrder, s.Enabled).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("tenant: build create service query: %w", err)
	}
	return r.pool.QueryRow(ctx, query, args...).Scan(&s.ID)
}

func (r *pgxRepository) GetService(ctx context.Context, id string) (*Service, error) {
	query, args, err := psql.Select("id", "tenant_id", "category_id", "name", "duration_minutes", "price_minor", "color",
		"max_simultaneous_bookings", "buffer_before_minutes", "buffer_after_minutes", "sort_order", "enabled", "deleted_at").
		From("services").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("tenant: build get service query: %w", err)
	}
	var s Service
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.TenantID, &s.CategoryID, &s.Name, &s.DurationMinutes, &s.PriceMinor, &s.Color,
		&s.MaxSimultaneousBookings, &s.BufferBeforeMinutes, &s.BufferAfterMinutes, &s.SortOrder, &s.Enabled, &s.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("tenant: get service: %w", err)
	}
	return &s, nil
}

func (r *pgxRepository) ListServices(ctx context.Context, tenantID string) ([]*Service, error) {
	query, args, err := psql.Select("id", "tenant_id", "category_id", "name", "duration_minutes", "price_minor", "color",
		"max_simultaneous_bookings", "buffer_before_minutes", "buffer_after_minutes", "sort_order", "enabled", "deleted_at").
		From("services").
		Where(squirrel.Eq{"tenant_id": tenantID, "deleted_at": nil}).
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("tenant: build list services query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tenant: list services: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.TenantID, &s.CategoryID, &s.Name, &s.DurationMinutes, &s.PriceMinor, &s.Color,
			&s.MaxSimultaneousBookings, &s.BufferBeforeMinutes, &s.BufferAfterMinutes, &s.SortOrder, &s.Enabled, &s.DeletedAt); err != nil {
			return nil, fmt.Errorf("tenant: scan service: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *pgxRepository) UpdateService(ctx context.Context, s *Service) error {
	query, args, err := psql.Update("services").
		Set("category_id", s.CategoryID).
		Set("name", s.Name).
		Set("duration_minutes", s.DurationMinutes).
		Set("price_minor", s.PriceMinor).
		Set("color", s.Color).
		Set("max_simultaneous_bookings", s.MaxSimultaneousBookings).
		Set("buffer_before_minutes", s.BufferBeforeMinutes).
		Set("buffer_after_minutes", s.BufferAfterMinutes).
		Set("sort_order", s.SortOrder).
		Set("enabled", s.Enabled).
		Where(squirrel.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("tenant: build update service query: %w", err)
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("tenant: update service: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}
