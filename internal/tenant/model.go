// Package tenant implements the Tenant/Category/Service entities of spec §3:
// the businesses the engine serves, their service catalog, and the capacity
// and buffer attributes the slot generator and reservation manager depend on.
package tenant

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("tenant: not found")
	ErrSlugRequired     = errors.New("tenant: slug is required")
	ErrSlugReserved     = errors.New("tenant: slug is reserved")
	ErrCategoryNotFound = errors.New("tenant: category not found")
	ErrServiceNotFound  = errors.New("tenant: service not found")
)

// Status is the tenant lifecycle state (spec §3 "Tenant").
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Tenant is a business using the engine, identified externally by its
// subdomain Slug.
type Tenant struct {
	ID          string
	Slug        string
	DisplayName string
	Timezone    string
	Currency    string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups an ordered sequence of Services within a Tenant (spec §3).
type Category struct {
	ID          string
	TenantID    string
	Name        string
	Description string
	SortOrder   int
	DeletedAt   *time.Time
}

// Service is a bookable offering of a Tenant (spec §3 "Service").
type Service struct {
	ID                     string
	TenantID               string
	CategoryID             string
	Name                   string
	DurationMinutes        int
	PriceMinor             int64
	Color                  string
	MaxSimultaneousBookings int
	BufferBeforeMinutes    int
	BufferAfterMinutes     int
	SortOrder              int
	Enabled                bool
	DeletedAt              *time.Time
}

// Duration returns the service's booked duration as a time.Duration.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// BufferBefore returns the service's lead buffer as a time.Duration.
func (s *Service) BufferBefore() time.Duration {
	return time.Duration(s.BufferBeforeMinutes) * time.Minute
}

// BufferAfter returns the service's trailing buffer as a time.Duration.
func (s *Service) BufferAfter() time.Duration {
	return time.Duration(s.BufferAfterMinutes) * time.Minute
}
