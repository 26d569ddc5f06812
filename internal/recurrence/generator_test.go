package recurrence

import (
	"testing"
	"time"

	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestGenerateStringsPresets(t *testing.T) {
	tests := []struct {
		name  string
		start string
		mode  Mode
		opts  []Option
		want  []string
	}{
		{
			name:  "none emits the start date only",
			start: "2025-01-15",
			mode:  ModeNone,
			want:  []string{"2025-01-15"},
		},
		{
			name:  "monthly day clamps short months",
			start: "2025-01-31",
			mode:  ModeMonthlyDay,
			want: []string{
				"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31", "2025-06-30",
				"2025-07-31", "2025-08-31", "2025-09-30", "2025-10-31", "2025-11-30", "2025-12-31",
			},
		},
		{
			name:  "monthly day rolls over when asked",
			start: "2025-01-31",
			mode:  ModeMonthlyDay,
			opts:  []Option{WithOverflow(OverflowRoll)},
			want: []string{
				"2025-01-31", "2025-03-03", "2025-03-31", "2025-05-01", "2025-05-31", "2025-07-01",
				"2025-07-31", "2025-08-31", "2025-10-01", "2025-10-31", "2025-12-01", "2025-12-31",
			},
		},
		{
			name:  "yearly keeps leap day clamped",
			start: "2024-02-29",
			mode:  ModeYearly,
			want:  []string{"2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateStrings(tt.start, tt.mode, nil, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPresetCaps(t *testing.T) {
	daily, err := GenerateStrings("2025-01-01", ModeDaily, nil)
	require.NoError(t, err)
	require.Len(t, daily, DailyCap)
	assert.Equal(t, "2025-01-30", daily[DailyCap-1])

	weekly, err := GenerateStrings("2025-01-01", ModeWeekly, nil)
	require.NoError(t, err)
	require.Len(t, weekly, WeeklyCap)
	assert.Equal(t, "2025-01-08", weekly[1])
	assert.Equal(t, "2025-06-25", weekly[WeeklyCap-1])

	wd, err := Generate(date(t, "2025-01-01"), ModeWeekday, nil)
	require.NoError(t, err)
	require.Len(t, wd, 64)
	for _, d := range wd {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
	assert.Equal(t, "2025-03-31", FormatDate(wd[len(wd)-1]))
}

func TestMonthlyNth(t *testing.T) {
	first, err := GenerateStrings("2025-01-15", ModeMonthlyNth, nil)
	require.NoError(t, err)
	second, err := GenerateStrings("2025-01-15", ModeMonthlyNth, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, MonthlyCap)
	assert.Equal(t, "2025-01-15", first[0])
	assert.Contains(t, first, "2025-02-19")

	fifth, err := GenerateStrings("2025-01-29", ModeMonthlyNth, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-29", "2025-02-26", "2025-03-26", "2025-04-30"}, fifth[:4])
}

func TestCustomRules(t *testing.T) {
	tests := []struct {
		name  string
		start string
		rule  Rule
		want  []string
	}{
		{
			name:  "daily every other day",
			start: "2025-01-01",
			rule:  Rule{Freq: Daily, Interval: 2, Count: 5},
			want:  []string{"2025-01-01", "2025-01-03", "2025-01-05", "2025-01-07", "2025-01-09"},
		},
		{
			name:  "biweekly on monday and wednesday",
			start: "2025-01-06",
			rule:  Rule{Freq: Weekly, Interval: 2, ByWeekday: []int{1, 3}, Count: 4},
			want:  []string{"2025-01-06", "2025-01-08", "2025-01-20", "2025-01-22"},
		},
		{
			name:  "weekly anchored to start until a date",
			start: "2025-01-01",
			rule:  Rule{Freq: Weekly, Until: "2025-01-29"},
			want:  []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-22", "2025-01-29"},
		},
		{
			name:  "every two months on the third wednesday",
			start: "2025-01-15",
			rule:  Rule{Freq: Monthly, Interval: 2, MonthlyMode: ByDay, Count: 3},
			want:  []string{"2025-01-15", "2025-03-19", "2025-05-21"},
		},
		{
			name:  "monthly by day of month",
			start: "2025-01-10",
			rule:  Rule{Freq: Monthly, Interval: 3, Count: 3},
			want:  []string{"2025-01-10", "2025-04-10", "2025-07-10"},
		},
		{
			name:  "every other year",
			start: "2025-03-10",
			rule:  Rule{Freq: Yearly, Interval: 2, Count: 3},
			want:  []string{"2025-03-10", "2027-03-10", "2029-03-10"},
		},
		{
			name:  "lower case freq is accepted",
			start: "2025-01-01",
			rule:  Rule{Freq: "daily", Count: 2},
			want:  []string{"2025-01-01", "2025-01-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			got, err := GenerateStrings(tt.start, ModeCustom, &rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomWithoutBoundIsCapped(t *testing.T) {
	rule := &Rule{Freq: Daily}
	all, err := Generate(date(t, "2025-01-01"), ModeCustom, rule)
	require.NoError(t, err)
	assert.Len(t, all, DefaultLimit)

	some, err := Generate(date(t, "2025-01-01"), ModeCustom, rule, WithLimit(10))
	require.NoError(t, err)
	assert.Len(t, some, 10)
}

func TestInvalidRules(t *testing.T) {
	start := date(t, "2025-01-15")
	tests := []struct {
		name string
		mode Mode
		rule *Rule
	}{
		{"unknown mode", Mode("fortnightly"), nil},
		{"custom without rule", ModeCustom, nil},
		{"unknown freq", ModeCustom, &Rule{Freq: "HOURLY"}},
		{"weekday out of range", ModeCustom, &Rule{Freq: Weekly, ByWeekday: []int{7}}},
		{"negative interval", ModeCustom, &Rule{Freq: Daily, Interval: -1}},
		{"negative count", ModeCustom, &Rule{Freq: Daily, Count: -1}},
		{"count too large", ModeCustom, &Rule{Freq: Daily, Count: MaxCount + 1}},
		{"until before start", ModeCustom, &Rule{Freq: Daily, Until: "2025-01-01"}},
		{"until malformed", ModeCustom, &Rule{Freq: Daily, Until: "01/20/2025"}},
		{"unknown monthly mode", ModeCustom, &Rule{Freq: Monthly, MonthlyMode: "BYWEEK"}},
		{"unknown overflow", ModeCustom, &Rule{Freq: Monthly, Overflow: "wrap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(start, tt.mode, tt.rule)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, utils.IsKind(err, utils.KindInvalidRecurrence))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Monthly_Nth ")
	require.NoError(t, err)
	assert.Equal(t, ModeMonthlyNth, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, m)

	_, err = ParseMode("hourly")
	assert.True(t, utils.IsKind(err, utils.KindInvalidRecurrence))
}

func TestOccurrencesIsRestartable(t *testing.T) {
	seq, err := Occurrences(date(t, "2025-01-01"), ModeDaily, nil)
	require.NoError(t, err)

	var firstThree []time.Time
	for d := range seq {
		firstThree = append(firstThree, d)
		if len(firstThree) == 3 {
			break
		}
	}

	var all []time.Time
	for d := range seq {
		all = append(all, d)
	}
	require.Len(t, all, DailyCap)
	assert.Equal(t, firstThree, all[:3])
}

func TestSequencesStrictlyIncrease(t *testing.T) {
	starts := []string{"2024-01-31", "2024-02-29", "2025-05-31", "2025-12-29"}
	modes := []Mode{ModeDaily, ModeWeekday, ModeWeekly, ModeMonthlyDay, ModeMonthlyNth, ModeYearly}

	for _, s := range starts {
		for _, m := range modes {
			for _, o := range []Overflow{OverflowClamp, OverflowRoll} {
				got, err := Generate(date(t, s), m, nil, WithOverflow(o))
				require.NoError(t, err)
				for i := 1; i < len(got); i++ {
					assert.Truef(t, got[i].After(got[i-1]), "%s %s %s: %s not after %s", s, m, o, got[i], got[i-1])
				}
			}
		}
	}
}

func TestNthWeekdayOfMonth(t *testing.T) {
	assert.Equal(t, "2025-02-19", FormatDate(NthWeekdayOfMonth(2025, time.February, time.Wednesday, 3)))
	assert.Equal(t, "2025-02-26", FormatDate(NthWeekdayOfMonth(2025, time.February, time.Wednesday, 5)))
	assert.Equal(t, "2025-03-03", FormatDate(NthWeekdayOfMonth(2025, time.March, time.Monday, 1)))
	assert.Equal(t, "2025-03-31", FormatDate(NthWeekdayOfMonth(2025, time.March, time.Monday, 5)))
}

func TestDescribe(t *testing.T) {
	r := &Rule{Freq: Weekly, Interval: 2, ByWeekday: []int{1, 3}, Count: 4}
	assert.Equal(t, "every 2 weeks on Mon, Wed, 4 times", r.Describe())
	assert.Equal(t, "every day, until 2025-02-01", (&Rule{Freq: Daily, Until: "2025-02-01"}).Describe())
}
