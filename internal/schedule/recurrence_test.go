package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func formatDays(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format("2006-01-02")
	}
	return out
}

func TestExpand_WeeklyMondayWednesday(t *testing.T) {
	got := Expand(RecurrenceSpec{
		StartDate: day(2024, 1, 1),
		Days:      []time.Weekday{time.Monday, time.Wednesday},
		Cadence:   Weekly,
	})
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-08"}, formatDays(got[:3]))
	assert.True(t, got[len(got)-1].Before(day(2024, 4, 1)), "horizon end is exclusive")
}

func TestExpand_EmptyDaysYieldsNothing(t *testing.T) {
	for _, c := range []Cadence{Weekly, Fortnightly, Monthly} {
		got := Expand(RecurrenceSpec{StartDate: day(2024, 1, 1), Cadence: c})
		assert.Empty(t, got, "cadence %s", c)
	}
}

// Every returned day must fall on a selected weekday, for any cadence.
func TestExpand_WeekdayContainment(t *testing.T) {
	sets := [][]time.Weekday{
		{time.Sunday},
		{time.Tuesday, time.Thursday},
		{time.Monday, time.Wednesday, time.Friday, time.Saturday},
		{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	}
	starts := []time.Time{day(2024, 1, 1), day(2024, 2, 29), day(2023, 10, 31), day(2025, 3, 30)}

	for _, c := range []Cadence{Weekly, Fortnightly, Monthly} {
		for _, start := range starts {
			for _, days := range sets {
				selected := map[time.Weekday]bool{}
				for _, d := range days {
					selected[d] = true
				}
				got := Expand(RecurrenceSpec{StartDate: start, Days: days, Cadence: c})
				require.NotEmpty(t, got)
				for i, d := range got {
					assert.True(t, selected[d.Weekday()], "%s %s: %s is a %s", c, start.Format("2006-01-02"), d.Format("2006-01-02"), d.Weekday())
					if i > 0 {
						assert.True(t, got[i-1].Before(d), "dates must be strictly increasing")
					}
				}
			}
		}
	}
}

// Within the first four weeks every 7-day window starting on the start date
// contains exactly one date per selected weekday.
func TestExpand_WeeklyOnePerWindow(t *testing.T) {
	start := day(2024, 5, 15)
	days := []time.Weekday{time.Monday, time.Thursday, time.Sunday}
	got := Expand(RecurrenceSpec{StartDate: start, Days: days, Cadence: Weekly})

	for w := 0; w < 4; w++ {
		lo := start.AddDate(0, 0, 7*w)
		hi := lo.AddDate(0, 0, 7)
		counts := map[time.Weekday]int{}
		for _, d := range got {
			if !d.Before(lo) && d.Before(hi) {
				counts[d.Weekday()]++
			}
		}
		for _, wd := range days {
			assert.Equal(t, 1, counts[wd], "window %d weekday %s", w, wd)
		}
		assert.Len(t, counts, len(days))
	}
}

func TestExpand_FortnightlySkipsAlternateWeeks(t *testing.T) {
	got := Expand(RecurrenceSpec{
		StartDate: day(2024, 1, 1),
		Days:      []time.Weekday{time.Monday, time.Friday},
		Cadence:   Fortnightly,
	})
	assert.Equal(t, []string{
		"2024-01-01", "2024-01-05",
		"2024-01-15", "2024-01-19",
		"2024-01-29", "2024-02-02",
		"2024-02-12", "2024-02-16",
		"2024-02-26", "2024-03-01",
		"2024-03-11", "2024-03-15",
		"2024-03-25", "2024-03-29",
	}, formatDays(got))
}

func TestExpand_MonthlyScansOneWeekPerMonth(t *testing.T) {
	got := Expand(RecurrenceSpec{
		StartDate: day(2024, 1, 1),
		Days:      []time.Weekday{time.Monday, time.Friday},
		Cadence:   Monthly,
	})
	assert.Equal(t, []string{
		"2024-01-01", "2024-01-05",
		"2024-02-02", "2024-02-05",
		"2024-03-01", "2024-03-04",
	}, formatDays(got))
}

// Consecutive dates for one weekday are roughly a calendar month apart.
func TestExpand_MonthlySpacing(t *testing.T) {
	for _, start := range []time.Time{day(2024, 1, 1), day(2024, 6, 17), day(2025, 11, 9)} {
		exp := Expander{HorizonMonths: 12, Overflow: Clamp}
		got := exp.Expand(RecurrenceSpec{StartDate: start, Days: []time.Weekday{time.Tuesday}, Cadence: Monthly})
		require.Len(t, got, 12, "start %s", start.Format("2006-01-02"))
		for i := 1; i < len(got); i++ {
			gap := got[i].Sub(got[i-1]).Hours() / 24
			assert.GreaterOrEqual(t, gap, 27.9)
			assert.LessOrEqual(t, gap, 35.1)
		}
	}
}

func TestExpand_MonthOverflowPolicies(t *testing.T) {
	every := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	spec := RecurrenceSpec{StartDate: day(2024, 1, 31), Days: every, Cadence: Monthly}

	clamped := formatDays(Expander{HorizonMonths: 3, Overflow: Clamp}.Expand(spec))
	assert.Contains(t, clamped, "2024-02-29")
	assert.Contains(t, clamped, "2024-03-31")
	assert.NotContains(t, clamped, "2024-03-02")
	assert.Len(t, clamped, 21)

	rolled := formatDays(Expander{HorizonMonths: 3, Overflow: Roll}.Expand(spec))
	assert.NotContains(t, rolled, "2024-02-29")
	assert.Contains(t, rolled, "2024-03-02")
	assert.Contains(t, rolled, "2024-03-31")
	assert.Len(t, rolled, 21)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		start  time.Time
		n      int
		policy OverflowPolicy
		want   string
	}{
		{day(2024, 1, 31), 1, Clamp, "2024-02-29"},
		{day(2023, 1, 31), 1, Clamp, "2023-02-28"},
		{day(2024, 1, 31), 1, Roll, "2024-03-02"},
		{day(2024, 1, 31), 2, Clamp, "2024-03-31"},
		{day(2024, 11, 30), 3, Clamp, "2025-02-28"},
		{day(2024, 1, 15), 1, "", "2024-02-15"},
	}
	for _, tt := range tests {
		got := AddMonths(tt.start, tt.n, tt.policy)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "%s +%d %s", tt.start.Format("2006-01-02"), tt.n, tt.policy)
	}
}

func TestRecurrenceSpecValidate(t *testing.T) {
	ok := RecurrenceSpec{StartDate: day(2024, 1, 1), Cadence: Weekly}
	assert.NoError(t, ok.Validate(), "empty weekday set is valid")

	assert.ErrorIs(t, RecurrenceSpec{Cadence: Weekly}.Validate(), ErrMissingStart)
	assert.ErrorIs(t, RecurrenceSpec{StartDate: day(2024, 1, 1), Cadence: "daily"}.Validate(), ErrUnknownCadence)
	assert.ErrorIs(t, RecurrenceSpec{StartDate: day(2024, 1, 1), Cadence: Weekly, Days: []time.Weekday{7}}.Validate(), ErrInvalidWeekday)
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays("mon, Wednesday,5,sun")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday, time.Sunday}, days)

	_, err = ParseWeekdays("funday")
	assert.ErrorIs(t, err, ErrInvalidWeekday)

	days, err = ParseWeekdays("")
	require.NoError(t, err)
	assert.Empty(t, days)
}
