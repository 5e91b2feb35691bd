package grain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapToGrain(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"already aligned", base, base},
		{"round down", base.Add(1 * time.Minute), base},
		{"tie rounds up", base.Add(150 * time.Second), base.Add(5 * time.Minute)},
		{"round up", base.Add(4 * time.Minute), base.Add(5 * time.Minute)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, SnapToGrain(c.in).Equal(c.want), "got %v want %v", SnapToGrain(c.in), c.want)
		})
	}
}

func TestAlignedToGrain(t *testing.T) {
	assert.True(t, AlignedToGrain(time.Date(2025, 2, 1, 10, 5, 0, 0, time.UTC)))
	assert.False(t, AlignedToGrain(time.Date(2025, 2, 1, 10, 6, 0, 0, time.UTC)))
	assert.False(t, AlignedToGrain(time.Date(2025, 2, 1, 10, 5, 1, 0, time.UTC)))
}

func TestOverlap(t *testing.T) {
	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, Overlap(start, start.Add(time.Hour), start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.False(t, Overlap(start, start.Add(time.Hour), start.Add(time.Hour), start.Add(2*time.Hour)), "half-open: touching ends do not overlap")
	assert.False(t, Overlap(start, start.Add(time.Hour), start.Add(2*time.Hour), start.Add(3*time.Hour)))
}

func TestDayBoundariesAcrossDST(t *testing.T) {
	tz, err := LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2025-03-09 is a US spring-forward DST transition day.
	dstDay := time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)
	start := StartOfDay(dstDay, tz)
	end := EndOfDay(dstDay, tz)

	assert.Equal(t, 0, start.In(tz).Hour())
	assert.Equal(t, 23, end.In(tz).Hour())
	assert.True(t, end.After(start))
	// The start of day stays on the same civil date in tz.
	assert.Equal(t, 2025, start.In(tz).Year())
}

func TestParseClock(t *testing.T) {
	tz, err := LoadLocation("Europe/Paris")
	require.NoError(t, err)
	on := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	got, err := ParseClock("09:30", on, tz)
	require.NoError(t, err)
	assert.Equal(t, 9, got.In(tz).Hour())
	assert.Equal(t, 30, got.In(tz).Minute())

	_, err = ParseClock("25:00", on, tz)
	assert.Error(t, err)
}
