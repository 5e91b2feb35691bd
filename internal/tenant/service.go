package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrim         = regexp.MustCompile(`(^-+|-+$)`)

	// reservedSlugs can never be allocated to a tenant; they collide with
	// top-level ops/API routes.
	reservedSlugs = map[string]bool{
		"www": true, "api": true, "admin": true, "internal": true, "ops": true, "healthz": true,
	}

	maxSlugSuffixAttempts = 20
)

// Catalog implements tenant/category/service lifecycle management, including
// subdomain slug allocation with a collision suffix on create (spec §3).
type Catalog struct {
	repo Repository
	log  *zap.Logger
}

// NewCatalog builds a Catalog backed by repo.
func NewCatalog(repo Repository, log *zap.Logger) *Catalog {
	return &Catalog{repo: repo, log: log}
}

// CreateTenant allocates a unique slug derived from displayName (or the
// caller-supplied preferredSlug) and creates the tenant row. Collisions are
// resolved by appending "-2", "-3", ... until a free slug is found.
func (c *Catalog) CreateTenant(ctx context.Context, displayName, preferredSlug, timezone, currency string) (*Tenant, error) {
	base := slugify(preferredSlug)
	if base == "" {
		base = slugify(displayName)
	}
	if base == "" {
		return nil, ErrSlugRequired
	}

	slug, err := c.allocateSlug(ctx, base)
	if err != nil {
		return nil, err
	}

	t := &Tenant{
		Slug:        slug,
		DisplayName: displayName,
		Timezone:    timezone,
		Currency:    currency,
		Status:      StatusActive,
	}
	if err := c.repo.CreateTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("tenant: create: %w", err)
	}
	c.log.Info("tenant created", zap.String("tenant_id", t.ID), zap.String("slug", t.Slug))
	return t, nil
}

func (c *Catalog) allocateSlug(ctx context.Context, base string) (string, error) {
	if reservedSlugs[base] {
		base = base + "-co"
	}

	candidate := base
	for attempt := 2; attempt <= maxSlugSuffixAttempts; attempt++ {
		exists, err := c.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("tenant: check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", ErrSlugReserved
}

// slugify lowercases s and replaces runs of non-alphanumeric characters with
// a single hyphen, trimming leading/trailing hyphens.
func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	replaced := slugInvalidChars.ReplaceAllString(lower, "-")
	return slugTrim.ReplaceAllString(replaced, "")
}

// SuspendTenant marks a tenant suspended. Only the status is recorded: slot
// lookup and reservation do not consult it, and existing appointments are
// untouched.
func (c *Catalog) SuspendTenant(ctx context.Context, tenantID string) error {
	return c.repo.UpdateTenantStatus(ctx, tenantID, StatusSuspended)
}

// ReactivateTenant marks a suspended tenant active again.
func (c *Catalog) ReactivateTenant(ctx context.Context, tenantID string) error {
	return c.repo.UpdateTenantStatus(ctx, tenantID, StatusActive)
}

// GetTenant fetches a tenant by id.
func (c *Catalog) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return c.repo.GetTenant(ctx, id)
}

// GetTenantBySlug fetches a tenant by its subdomain slug.
func (c *Catalog) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return c.repo.GetTenantBySlug(ctx, slug)
}

// CreateCategory adds a category to a tenant's catalog.
func (c *Catalog) CreateCategory(ctx context.Context, tenantID, name, description string, sortOrder int) (*Category, error) {
	cat := &Category{TenantID: tenantID, Name: name, Description: description, SortOrder: sortOrder}
	if err := c.repo.CreateCategory(ctx, cat); err != nil {
		return nil, fmt.Errorf("tenant: create category: %w", err)
	}
	return cat, nil
}

// ListCategories returns a tenant's non-deleted categories in display order.
func (c *Catalog) ListCategories(ctx context.Context, tenantID string) ([]*Category, error) {
	return c.repo.ListCategories(ctx, tenantID)
}

// CreateService adds a bookable service to a tenant's catalog. DurationMinutes
// and the buffer minutes must already be grain-aligned (enforced at the DB
// layer by the services table's CHECK constraints); neither this method nor
// the ops handler checks them beforehand.
func (c *Catalog) CreateService(ctx context.Context, svc *Service) (*Service, error) {
	if err := c.repo.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("tenant: create service: %w", err)
	}
	return svc, nil
}

// GetService fetches a service by id.
func (c *Catalog) GetService(ctx context.Context, id string) (*Service, error) {
	return c.repo.GetService(ctx, id)
}

// ListServices returns a tenant's non-deleted services.
func (c *Catalog) ListServices(ctx context.Context, tenantID string) ([]*Service, error) {
	return c.repo.ListServices(ctx, tenantID)
}

// UpdateService persists changes to an existing service's catalog attributes.
func (c *Catalog) UpdateService(ctx context.Context, svc *Service) error {
	return c.repo.UpdateService(ctx, svc)
}
