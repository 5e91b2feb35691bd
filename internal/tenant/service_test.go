package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	Repository
	slugs   map[string]bool
	created *Tenant
}

func (f *fakeRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f.slugs[slug], nil
}

func (f *fakeRepo) CreateTenant(ctx context.Context, t *Tenant) error {
	t.ID = "tenant-1"
	f.created = t
	return nil
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-dental", slugify("Acme Dental!"))
	assert.Equal(t, "a-b-c", slugify("  A_B  C  "))
	assert.Equal(t, "", slugify("   "))
}

func TestCreateTenantAllocatesFreeSlug(t *testing.T) {
	repo := &fakeRepo{slugs: map[string]bool{}}
	cat := NewCatalog(repo, zap.NewNop())

	tn, err := cat.CreateTenant(context.Background(), "Acme Dental", "", "America/New_York", "USD")
	require.NoError(t, err)
	assert.Equal(t, "acme-dental", tn.Slug)
}

func TestCreateTenantAppendsSuffixOnCollision(t *testing.T) {
	repo := &fakeRepo{slugs: map[string]bool{
		"acme-dental":   true,
		"acme-dental-2": true,
	}}
	cat := NewCatalog(repo, zap.NewNop())

	tn, err := cat.CreateTenant(context.Background(), "Acme Dental", "", "America/New_York", "USD")
	require.NoError(t, err)
	assert.Equal(t, "acme-dental-3", tn.Slug)
}

func TestCreateTenantRejectsReservedSlug(t *testing.T) {
	repo := &fakeRepo{slugs: map[string]bool{}}
	cat := NewCatalog(repo, zap.NewNop())

	tn, err := cat.CreateTenant(context.Background(), "API", "api", "UTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, "api-co", tn.Slug)
}

func TestCreateTenantRequiresSlugSource(t *testing.T) {
	repo := &fakeRepo{slugs: map[string]bool{}}
	cat := NewCatalog(repo, zap.NewNop())

	_, err := cat.CreateTenant(context.Background(), "   ", "", "UTC", "USD")
	assert.ErrorIs(t, err, ErrSlugRequired)
}
