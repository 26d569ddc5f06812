// Package recurrence expands repeat modes and RRULE-lite custom rules into bounded,
// deterministic sequences of calendar dates. It performs no I/O.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/mnuddindev/cookpulse/pkg/utils"
)

type Mode string

const (
	ModeNone       Mode = "none"
	ModeDaily      Mode = "daily"
	ModeWeekday    Mode = "weekday"
	ModeWeekly     Mode = "weekly"
	ModeMonthlyDay Mode = "monthly_day"
	ModeMonthlyNth Mode = "monthly_nth"
	ModeYearly     Mode = "yearly"
	ModeCustom     Mode = "custom"
)

type Freq string

const (
	Daily   Freq = "DAILY"
	Weekly  Freq = "WEEKLY"
	Monthly Freq = "MONTHLY"
	Yearly  Freq = "YEARLY"
)

type MonthlyMode string

const (
	ByMonthDay MonthlyMode = "BYMONTHDAY"
	ByDay      MonthlyMode = "BYDAY"
)

// Overflow decides what happens to a day of month the target month does not have.
type Overflow string

const (
	OverflowClamp Overflow = "clamp"
	OverflowRoll  Overflow = "roll"
)

// Lookahead caps for the preset modes.
const (
	DailyCap        = 30
	WeekdayScan     = 90
	WeeklyCap       = 26
	MonthlyCap      = 12
	YearlyCap       = 5
	DefaultLimit    = 366
	MaxCount        = 1000
	maxWeekdayNum   = 6
	defaultInterval = 1
)

// Rule is the custom recurrence rule.
type Rule struct {
	Freq        Freq        `json:"freq"`
	Interval    int         `json:"interval,omitempty"`
	ByWeekday   []int       `json:"byweekday,omitempty"`
	MonthlyMode MonthlyMode `json:"monthlyMode,omitempty"`
	Count       int         `json:"count,omitempty"`
	Until       string      `json:"until,omitempty"`
	Overflow    Overflow    `json:"overflow,omitempty"`
}

// ParseMode accepts a mode name case-insensitively. An empty name means ModeNone.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeNone, nil
	}
	switch m {
	case ModeNone, ModeDaily, ModeWeekday, ModeWeekly, ModeMonthlyDay, ModeMonthlyNth, ModeYearly, ModeCustom:
		return m, nil
	}
	return "", utils.InvalidRecurrenceRule(fmt.Sprintf("unknown repeat mode %q", s))
}

// compiled is a validated rule with defaults applied.
type compiled struct {
	freq        Freq
	interval    int
	weekdays    [7]bool
	anyWeekday  bool
	monthlyMode MonthlyMode
	count       int
	until       time.Time
	hasUntil    bool
	overflow    Overflow
}

func (r *Rule) compile(start time.Time, fallback Overflow) (*compiled, error) {
	if r == nil {
		return nil, utils.InvalidRecurrenceRule("custom mode requires a rule")
	}
	c := &compiled{
		freq:        Freq(strings.ToUpper(strings.TrimSpace(string(r.Freq)))),
		interval:    r.Interval,
		monthlyMode: MonthlyMode(strings.ToUpper(string(r.MonthlyMode))),
		count:       r.Count,
		overflow:    r.Overflow,
	}

	switch c.freq {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return nil, utils.InvalidRecurrenceRule(fmt.Sprintf("unknown freq %q", r.Freq))
	}

	if c.interval < 0 {
		return nil, utils.InvalidRecurrenceRule("interval must be positive")
	}
	if c.interval == 0 {
		c.interval = defaultInterval
	}

	for _, wd := range r.ByWeekday {
		if wd < 0 || wd > maxWeekdayNum {
			return nil, utils.InvalidRecurrenceRule(fmt.Sprintf("byweekday %d outside 0..6", wd))
		}
		c.weekdays[wd] = true
		c.anyWeekday = true
	}

	switch c.monthlyMode {
	case "":
		c.monthlyMode = ByMonthDay
	case ByMonthDay, ByDay:
	default:
		return nil, utils.InvalidRecurrenceRule(fmt.Sprintf("unknown monthlyMode %q", r.MonthlyMode))
	}

	if c.count < 0 {
		return nil, utils.InvalidRecurrenceRule("count must be positive")
	}
	if c.count > MaxCount {
		return nil, utils.InvalidRecurrenceRule(fmt.Sprintf("count must be at most %d", MaxCount))
	}

	if r.Until != "" {
		until, err := time.Parse(DateLayout, r.Until)
		if err != nil {
			return nil, utils.InvalidRecurrenceRule("until must be formatted YYYY-MM-DD")
		}
		if until.Before(start) {
			return nil, utils.InvalidRecurrenceRule("until is before the start date")
		}
		c.until, c.hasUntil = until, true
	}

	switch c.overflow {
	case "":
		c.overflow = fallback
	case OverflowClamp, OverflowRoll:
	default:
		return nil, utils.InvalidRecurrenceRule(fmt.Sprintf("unknown overflow %q", r.Overflow))
	}

	return c, nil
}

// Describe renders a short human label for the rule, e.g. "every 2 weeks on Mon, Wed".
func (r *Rule) Describe() string {
	if r == nil {
		return ""
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 1
	}
	unit := map[Freq]string{Daily: "day", Weekly: "week", Monthly: "month", Yearly: "year"}[Freq(strings.ToUpper(string(r.Freq)))]
	var b strings.Builder
	if interval == 1 {
		fmt.Fprintf(&b, "every %s", unit)
	} else {
		fmt.Fprintf(&b, "every %d %ss", interval, unit)
	}
	if len(r.ByWeekday) > 0 {
		names := make([]string, 0, len(r.ByWeekday))
		for _, wd := range r.ByWeekday {
			if wd >= 0 && wd <= maxWeekdayNum {
				names = append(names, time.Weekday(wd).String()[:3])
			}
		}
		fmt.Fprintf(&b, " on %s", strings.Join(names, ", "))
	}
	switch {
	case r.Count > 0:
		fmt.Fprintf(&b, ", %d times", r.Count)
	case r.Until != "":
		fmt.Fprintf(&b, ", until %s", r.Until)
	}
	return b.String()
}
