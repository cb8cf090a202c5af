package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestCalendar_IsWorkingDay(t *testing.T) {
	// GIVEN: Nov 5 is an active holiday, Nov 6 an inactive one, Nov 7 a
	// holiday in another country
	repo := newRepo(t)
	holiday(t, repo, "2024-11-05", "Founders Day")
	ctx := context.Background()
	require.NoError(t, repo.SaveHoliday(ctx, leave.PublicHoliday{
		ID: "h-6", Date: date("2024-11-06"), Country: country, Name: "Retired", Active: false,
	}))
	require.NoError(t, repo.SaveHoliday(ctx, leave.PublicHoliday{
		ID: "h-7", Date: date("2024-11-07"), Country: "US", Name: "Elsewhere", Active: true,
	}))
	cal := leave.Calendar{Holidays: repo}

	tests := []struct {
		day     string
		working bool
	}{
		{"2024-11-01", true},  // Friday
		{"2024-11-02", false}, // Saturday
		{"2024-11-03", false}, // Sunday
		{"2024-11-05", false}, // active holiday
		{"2024-11-06", true},  // inactive holiday
		{"2024-11-07", true},  // other country's holiday
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			ok, err := cal.IsWorkingDay(ctx, date(tt.day), country)
			require.NoError(t, err)
			assert.Equal(t, tt.working, ok)
		})
	}
}

func TestCalendar_CountWorkingDays(t *testing.T) {
	// GIVEN: Fri Nov 1 .. Fri Nov 8 with a holiday on Tue Nov 5
	repo := newRepo(t)
	holiday(t, repo, "2024-11-05", "Founders Day")
	cal := leave.Calendar{Holidays: repo}

	// WHEN: Counting working days
	n, err := cal.CountWorkingDays(context.Background(), date("2024-11-01"), date("2024-11-08"), country)

	// THEN: Fri 1, Mon 4, Wed 6, Thu 7, Fri 8
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = cal.CountWorkingDays(context.Background(), date("2024-11-08"), date("2024-11-01"), country)
	require.NoError(t, err)
	assert.Zero(t, n, "inverted range has no days")
}

func TestCalendar_HolidayLookupFailure(t *testing.T) {
	// GIVEN: The holiday calendar is down
	cal := leave.Calendar{Holidays: &flakyRepo{Repository: newRepo(t), failHolidays: true}}

	// WHEN: Classifying a weekday
	_, err := cal.IsWorkingDay(context.Background(), date("2024-11-04"), country)

	// THEN: DependencyUnavailable, with the cause preserved
	assert.ErrorIs(t, err, generic.ErrDependencyUnavailable)
	assert.ErrorIs(t, err, errBackend)

	// Weekends never need the calendar
	ok, err := cal.IsWorkingDay(context.Background(), date("2024-11-02"), country)
	assert.NoError(t, err)
	assert.False(t, ok)
}
