package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guide-booking/internal/models"
)

// Monday.
var today = time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

func mondayOnly(windows ...models.TimeWindow) *models.Availability {
	return &models.Availability{
		GuideID:            "guide-1",
		WeeklyAvailability: map[string][]models.TimeWindow{"monday": windows},
	}
}

func TestGenerateNilAvailability(t *testing.T) {
	got := Generate(nil, nil, 30, today, time.UTC)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGenerateMondayMorning(t *testing.T) {
	avail := mondayOnly(models.TimeWindow{StartTime: "09:00", EndTime: "10:00"})

	got := Generate(avail, nil, 30, today, time.UTC)

	require.Len(t, got, 2)
	assert.Equal(t, "2026-10-12", got[0].Date)
	assert.Equal(t, "2026-10-19", got[1].Date)

	require.Len(t, got[0].Slots, 2)
	assert.Equal(t, "09:00", got[0].Slots[0].StartTime)
	assert.Equal(t, "09:30", got[0].Slots[0].EndTime)
	assert.Equal(t, "09:30", got[0].Slots[1].StartTime)
	assert.Equal(t, "10:00", got[0].Slots[1].EndTime)
	assert.Equal(t, time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC), got[0].Slots[1].StartsAt)
}

func TestGenerateFloorsPartialSlot(t *testing.T) {
	cases := []struct {
		start, end string
		duration   int
		want       int
	}{
		{"09:00", "10:00", 45, 1},
		{"09:00", "11:10", 30, 4},
		{"13:00", "13:20", 30, 0},
		{"08:15", "12:15", 60, 4},
		{"10:00", "09:00", 30, 0},
	}

	for _, tc := range cases {
		avail := mondayOnly(models.TimeWindow{StartTime: tc.start, EndTime: tc.end})
		got := Generate(avail, nil, tc.duration, today, time.UTC)

		if tc.want == 0 {
			assert.Empty(t, got, "%s-%s/%d", tc.start, tc.end, tc.duration)
			continue
		}
		require.NotEmpty(t, got)
		assert.Len(t, got[0].Slots, tc.want, "%s-%s/%d", tc.start, tc.end, tc.duration)

		endLimit, _ := clockOn(today, tc.end, time.UTC)
		for _, s := range got[0].Slots {
			end := s.StartsAt.Add(time.Duration(tc.duration) * time.Minute)
			assert.False(t, end.After(endLimit))
		}
	}
}

func TestGenerateSkipsUnavailableDates(t *testing.T) {
	avail := mondayOnly(models.TimeWindow{StartTime: "09:00", EndTime: "10:00"})
	avail.UnavailableDates = []string{"2026-10-12"}

	got := Generate(avail, nil, 30, today, time.UTC)

	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-19", got[0].Date)
}

func TestGenerateExcludesBookedStarts(t *testing.T) {
	avail := mondayOnly(models.TimeWindow{StartTime: "09:00", EndTime: "10:00"})
	booked := []time.Time{
		time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC),
		// not aligned with a slot start, so nothing is removed
		time.Date(2026, 10, 19, 9, 10, 0, 0, time.UTC),
	}

	got := Generate(avail, booked, 30, today, time.UTC)

	require.Len(t, got, 2)
	require.Len(t, got[0].Slots, 1)
	assert.Equal(t, "09:30", got[0].Slots[0].StartTime)
	assert.Len(t, got[1].Slots, 2)
}

func TestGenerateOmitsFullyBookedDays(t *testing.T) {
	avail := mondayOnly(models.TimeWindow{StartTime: "09:00", EndTime: "10:00"})
	booked := []time.Time{
		time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC),
	}

	got := Generate(avail, booked, 30, today, time.UTC)

	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-19", got[0].Date)
}

func TestGenerateCoversFourteenDays(t *testing.T) {
	weekly := map[string][]models.TimeWindow{}
	for _, d := range models.Weekdays {
		weekly[d] = []models.TimeWindow{{StartTime: "10:00", EndTime: "11:00"}}
	}
	avail := &models.Availability{WeeklyAvailability: weekly}

	got := Generate(avail, nil, 60, today, time.UTC)

	require.Len(t, got, HorizonDays)
	assert.Equal(t, "2026-10-12", got[0].Date)
	assert.Equal(t, "2026-10-25", got[HorizonDays-1].Date)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Date, got[i].Date)
	}
}

func TestGenerateMultipleWindowsKeepOrder(t *testing.T) {
	avail := mondayOnly(
		models.TimeWindow{StartTime: "14:00", EndTime: "15:00"},
		models.TimeWindow{StartTime: "09:00", EndTime: "10:00"},
	)

	got := Generate(avail, nil, 60, today, time.UTC)

	require.NotEmpty(t, got)
	require.Len(t, got[0].Slots, 2)
	assert.Equal(t, "14:00", got[0].Slots[0].StartTime)
	assert.Equal(t, "09:00", got[0].Slots[1].StartTime)
}

func TestGenerateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	avail := mondayOnly(models.TimeWindow{StartTime: "09:00", EndTime: "09:30"})

	got := Generate(avail, nil, 30, today, loc)

	require.NotEmpty(t, got)
	assert.Equal(t, time.Date(2026, 10, 12, 4, 0, 0, 0, time.UTC), got[0].Slots[0].StartsAt.UTC())
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		h, m int
	}{
		{"09:00", true, 9, 0},
		{"23:59", true, 23, 59},
		{"00:00", true, 0, 0},
		{"9:00", false, 0, 0},
		{"09:5", false, 0, 0},
		{"24:00", false, 0, 0},
		{"12:60", false, 0, 0},
		{"", false, 0, 0},
	}

	for _, tc := range cases {
		h, m, ok := ParseClock(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.h, h, tc.in)
			assert.Equal(t, tc.m, m, tc.in)
		}
	}

	h, m, ok := ParseEndClock(EndOfDay)
	assert.True(t, ok)
	assert.Equal(t, 24, h)
	assert.Equal(t, 0, m)

	_, _, ok = ParseEndClock("9:00")
	assert.False(t, ok)
}

func TestGenerateWindowUntilMidnight(t *testing.T) {
	avail := mondayOnly(models.TimeWindow{StartTime: "23:00", EndTime: EndOfDay})

	got := Generate(avail, nil, 30, today, time.UTC)

	require.NotEmpty(t, got)
	assert.Equal(t, "2026-10-12", got[0].Date)
	require.Len(t, got[0].Slots, 2)
	assert.Equal(t, "23:30", got[0].Slots[1].StartTime)
	assert.Equal(t, EndOfDay, got[0].Slots[1].EndTime)
}

func TestGenerateSkipsShortHourWindow(t *testing.T) {
	avail := mondayOnly(models.TimeWindow{StartTime: "9:00", EndTime: "10:00"})

	assert.Empty(t, Generate(avail, nil, 30, today, time.UTC))
}
