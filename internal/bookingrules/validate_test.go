package bookingrules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivo-booking/engine/internal/availability"
	"github.com/rivo-booking/engine/internal/pkg/apperror"
)

func TestValidateRejectsPastTime(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := Validate(Params{
		Now:       now,
		SlotStart: now.Add(-time.Hour),
		SlotEnd:   now.Add(-time.Hour + 30*time.Minute),
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindPastTime))
}

func TestValidateAllowsGraceWindow(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := Validate(Params{
		Now:                now,
		SlotStart:          now.Add(-2 * time.Minute),
		SlotEnd:            now.Add(28 * time.Minute),
		AdvanceBookingDays: 30,
		SkipHorizonCheck:   true,
	})
	assert.NoError(t, err)
}

func TestValidateRejectsBeyondHorizon(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := Validate(Params{
		Now:                now,
		SlotStart:          now.AddDate(0, 0, 31),
		SlotEnd:            now.AddDate(0, 0, 31).Add(30 * time.Minute),
		AdvanceBookingDays: 30,
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindBeyondAdvanceLimit))
}

func TestValidateRejectsBelowMinAdvance(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := Validate(Params{
		Now:                      now,
		SlotStart:                now.Add(10 * time.Minute),
		SlotEnd:                  now.Add(40 * time.Minute),
		AdvanceBookingDays:       30,
		MinAdvanceBookingMinutes: 60,
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindBelowMinAdvance))
}

func TestValidateSkipHorizonCheckAllowsOperatorBackfill(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := Validate(Params{
		Now:              now,
		SlotStart:        now.Add(time.Minute),
		SlotEnd:          now.Add(31 * time.Minute),
		SkipHorizonCheck: true,
	})
	assert.NoError(t, err)
}

func TestValidateRejectsOffTimeConflict(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	slotStart := now.Add(2 * time.Hour)
	slotEnd := slotStart.Add(30 * time.Minute)

	err := Validate(Params{
		Now:                now,
		SlotStart:          slotStart,
		SlotEnd:            slotEnd,
		AdvanceBookingDays: 30,
		OffTimes: []availability.OffTimeInterval{
			{Start: slotStart.Add(-time.Hour), End: slotEnd.Add(time.Hour), Type: availability.TypeBreak, Reason: "lunch break"},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindOffTimeConflict))
}

func TestValidateAppliesBuffers(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	slotStart := now.Add(2 * time.Hour)
	slotEnd := slotStart.Add(30 * time.Minute)

	err := Validate(Params{
		Now:                now,
		SlotStart:          slotStart,
		SlotEnd:            slotEnd,
		BufferBefore:       15 * time.Minute,
		AdvanceBookingDays: 30,
		OffTimes: []availability.OffTimeInterval{
			{Start: slotStart.Add(-10 * time.Minute), End: slotStart, Type: availability.TypeBreak, Reason: "setup buffer"},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindOffTimeConflict))
}
