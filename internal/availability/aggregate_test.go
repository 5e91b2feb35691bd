package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivo-booking/engine/internal/grain"
)

type fakeRepo struct {
	weekly     []Weekly
	exceptions []Exception
}

func (f *fakeRepo) ListWeekly(ctx context.Context, tenantID string) ([]Weekly, error) { return f.weekly, nil }
func (f *fakeRepo) UpsertWeekly(ctx context.Context, w *Weekly) error                  { return nil }
func (f *fakeRepo) ListExceptions(ctx context.Context, tenantID string, from, to time.Time) ([]Exception, error) {
	return f.exceptions, nil
}
func (f *fakeRepo) UpsertException(ctx context.Context, e *Exception) error { return nil }

func TestAggregateSplitShiftProducesMidDayBreak(t *testing.T) {
	tz, err := grain.LoadLocation("UTC")
	require.NoError(t, err)

	repo := &fakeRepo{
		weekly: []Weekly{
			{Weekday: time.Monday, Enabled: true, Intervals: []Interval{
				{Open: "09:00", Close: "13:00"},
				{Open: "14:00", Close: "18:00"},
			}},
		},
	}
	agg := NewAggregator(repo)

	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC) // a Monday
	offTimes, err := agg.Aggregate(context.Background(), "tenant-1", monday, monday, tz)
	require.NoError(t, err)
	require.Len(t, offTimes, 3)

	assert.Equal(t, TypeClosedDay, offTimes[0].Type)
	assert.Equal(t, TypeBreak, offTimes[1].Type)
	assert.Equal(t, 13, offTimes[1].Start.Hour())
	assert.Equal(t, 14, offTimes[1].End.Hour())
	assert.Equal(t, TypeClosedDay, offTimes[2].Type)
}

func TestAggregateDisabledWeekdayIsClosedDay(t *testing.T) {
	tz, _ := grain.LoadLocation("UTC")
	repo := &fakeRepo{weekly: []Weekly{{Weekday: time.Sunday, Enabled: false}}}
	agg := NewAggregator(repo)

	sunday := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	offTimes, err := agg.Aggregate(context.Background(), "tenant-1", sunday, sunday, tz)
	require.NoError(t, err)
	require.Len(t, offTimes, 1)
	assert.Equal(t, TypeClosedDay, offTimes[0].Type)
}

func TestAggregateHolidayExceptionOverridesWeekly(t *testing.T) {
	tz, _ := grain.LoadLocation("UTC")
	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		weekly:     []Weekly{{Weekday: time.Monday, Enabled: true, Intervals: []Interval{{Open: "09:00", Close: "17:00"}}}},
		exceptions: []Exception{{Date: monday, Closed: true, Reason: "New Year"}},
	}
	agg := NewAggregator(repo)

	offTimes, err := agg.Aggregate(context.Background(), "tenant-1", monday, monday, tz)
	require.NoError(t, err)
	require.Len(t, offTimes, 1)
	assert.Equal(t, TypeHoliday, offTimes[0].Type)
	assert.Equal(t, "New Year", offTimes[0].Reason)
}

func TestIsTimeAvailable(t *testing.T) {
	base := time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)
	offTimes := []OffTimeInterval{{Start: base, End: base.Add(time.Hour), Type: TypeBreak}}

	assert.False(t, IsTimeAvailable(base, base.Add(30*time.Minute), offTimes))
	assert.True(t, IsTimeAvailable(base.Add(time.Hour), base.Add(2*time.Hour), offTimes), "half-open: touching the off-time end is available")
}
