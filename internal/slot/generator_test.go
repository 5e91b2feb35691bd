package slot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivo-booking/engine/internal/availability"
)

type fakeAvailRepo struct {
	weekly []availability.Weekly
}

func (f *fakeAvailRepo) ListWeekly(ctx context.Context, tenantID string) ([]availability.Weekly, error) {
	return f.weekly, nil
}
func (f *fakeAvailRepo) UpsertWeekly(ctx context.Context, w *availability.Weekly) error { return nil }
func (f *fakeAvailRepo) ListExceptions(ctx context.Context, tenantID string, from, to time.Time) ([]availability.Exception, error) {
	return nil, nil
}
func (f *fakeAvailRepo) UpsertException(ctx context.Context, e *availability.Exception) error {
	return nil
}

func setup() *Generator {
	repo := &fakeAvailRepo{
		weekly: []availability.Weekly{
			{Weekday: time.Monday, Enabled: true, Intervals: []availability.Interval{{Open: "09:00", Close: "12:00"}}},
		},
	}
	agg := availability.NewAggregator(repo)
	return NewGenerator(agg, agg)
}

func baseConfig() Config {
	return Config{
		Timezone:                 "UTC",
		TimeSlotDuration:         30 * time.Minute,
		AdvanceBookingDays:       30,
		MinAdvanceBookingMinutes: 0,
		ServiceDuration:          30 * time.Minute,
		MaxSimultaneousBookings:  2,
	}
}

func TestGenerateProducesStrideAlignedSlots(t *testing.T) {
	g := setup()
	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	now := monday.Add(-24 * time.Hour)

	slots, err := g.Generate(context.Background(), "tenant-1", baseConfig(), monday, monday, now, nil)
	require.NoError(t, err)

	require.Len(t, slots, 6) // 09:00..11:30 at 30-min stride within [09:00,12:00)
	assert.Equal(t, 9, slots[0].Start.Hour())
	assert.True(t, slots[0].Available)
	assert.Equal(t, 2, slots[0].Capacity)
}

func TestGenerateAppliesCapacityFromOccupants(t *testing.T) {
	g := setup()
	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	now := monday.Add(-24 * time.Hour)

	occupant := Occupant{
		Start: time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC),
	}

	slots, err := g.Generate(context.Background(), "tenant-1", baseConfig(), monday, monday, now, []Occupant{occupant, occupant})
	require.NoError(t, err)

	assert.Equal(t, 0, slots[0].Capacity)
	assert.False(t, slots[0].Available)
	assert.Equal(t, 100, slots[0].CapacityPercentage)
}

func TestGenerateSkipsCandidatesBelowMinAdvance(t *testing.T) {
	g := setup()
	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 3, 9, 20, 0, 0, time.UTC) // already inside the working window

	cfg := baseConfig()
	cfg.MinAdvanceBookingMinutes = 60

	slots, err := g.Generate(context.Background(), "tenant-1", cfg, monday, monday, now, nil)
	require.NoError(t, err)
	for _, s := range slots {
		assert.True(t, s.Start.After(now.Add(59*time.Minute)))
	}
}

func TestGenerateStopsAtHorizon(t *testing.T) {
	g := setup()
	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	nextMonday := monday.AddDate(0, 0, 7)
	now := monday

	cfg := baseConfig()
	cfg.AdvanceBookingDays = 3

	slots, err := g.Generate(context.Background(), "tenant-1", cfg, monday, nextMonday, now, nil)
	require.NoError(t, err)
	for _, s := range slots {
		assert.True(t, s.Start.Before(now.AddDate(0, 0, 4)))
	}
}
