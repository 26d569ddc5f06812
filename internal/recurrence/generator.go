package recurrence

import (
	"iter"
	"slices"
	"time"

	"github.com/mnuddindev/cookpulse/pkg/utils"
)

type config struct {
	limit    int
	overflow Overflow
}

// Option tunes an expansion.
type Option func(*config)

// WithLimit caps custom rules that carry no count. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithOverflow picks the short-month behaviour for rules that do not set their own.
func WithOverflow(o Overflow) Option {
	return func(c *config) {
		if o == OverflowClamp || o == OverflowRoll {
			c.overflow = o
		}
	}
}

// plan is a candidate source plus the bounds applied to it.
type plan struct {
	source   iter.Seq[time.Time]
	max      int
	until    time.Time
	hasUntil bool
}

func (p plan) seq(yield func(time.Time) bool) {
	n := 0
	var last time.Time
	for d := range p.source {
		if p.hasUntil && d.After(p.until) {
			return
		}
		if n > 0 && !d.After(last) {
			continue
		}
		if !yield(d) {
			return
		}
		last = d
		n++
		if p.max > 0 && n >= p.max {
			return
		}
	}
}

// Occurrences returns the dates on which an item starting at start recurs. The sequence
// is strictly increasing, always finite, and can be ranged over any number of times.
func Occurrences(start time.Time, mode Mode, rule *Rule, opts ...Option) (iter.Seq[time.Time], error) {
	cfg := config{limit: DefaultLimit, overflow: OverflowClamp}
	for _, opt := range opts {
		opt(&cfg)
	}
	start = Normalize(start)

	var p plan
	switch mode {
	case ModeNone:
		p = plan{source: single(start), max: 1}
	case ModeDaily:
		p = plan{source: everyDays(start, 1), max: DailyCap}
	case ModeWeekday:
		p = plan{source: weekdays(start, WeekdayScan)}
	case ModeWeekly:
		p = plan{source: everyDays(start, 7), max: WeeklyCap}
	case ModeMonthlyDay:
		p = plan{source: everyMonths(start, 1, cfg.overflow), max: MonthlyCap}
	case ModeMonthlyNth:
		p = plan{source: nthWeekdays(start, 1), max: MonthlyCap}
	case ModeYearly:
		p = plan{source: everyMonths(start, 12, cfg.overflow), max: YearlyCap}
	case ModeCustom:
		c, err := rule.compile(start, cfg.overflow)
		if err != nil {
			return nil, err
		}
		p = customPlan(start, c, cfg.limit)
	default:
		return nil, utils.InvalidRecurrenceRule("unknown repeat mode " + string(mode))
	}
	return p.seq, nil
}

func customPlan(start time.Time, c *compiled, limit int) plan {
	p := plan{max: c.count, until: c.until, hasUntil: c.hasUntil}
	if p.max == 0 {
		p.max = limit
	}
	switch c.freq {
	case Daily:
		p.source = everyDays(start, c.interval)
	case Weekly:
		p.source = weeklyOn(start, c)
	case Monthly:
		if c.monthlyMode == ByDay {
			p.source = nthWeekdays(start, c.interval)
		} else {
			p.source = everyMonths(start, c.interval, c.overflow)
		}
	case Yearly:
		p.source = everyMonths(start, 12*c.interval, c.overflow)
	}
	return p
}

// Generate collects Occurrences into a slice.
func Generate(start time.Time, mode Mode, rule *Rule, opts ...Option) ([]time.Time, error) {
	seq, err := Occurrences(start, mode, rule, opts...)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// GenerateStrings expands an ISO start date into ISO occurrence dates.
func GenerateStrings(start string, mode Mode, rule *Rule, opts ...Option) ([]string, error) {
	s, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	dates, err := Generate(s, mode, rule, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out, nil
}

func single(start time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		yield(start)
	}
}

func everyDays(start time.Time, step int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for k := 0; ; k++ {
			if !yield(start.AddDate(0, 0, k*step)) {
				return
			}
		}
	}
}

func weekdays(start time.Time, scan int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for k := 0; k < scan; k++ {
			d := start.AddDate(0, 0, k)
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// everyMonths always offsets from start so a clamped short month never shifts later ones.
func everyMonths(start time.Time, step int, overflow Overflow) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for k := 0; ; k++ {
			if !yield(AddMonths(start, k*step, overflow)) {
				return
			}
		}
	}
}

func nthWeekdays(start time.Time, step int) iter.Seq[time.Time] {
	n, wd := nthOf(start), start.Weekday()
	return func(yield func(time.Time) bool) {
		for k := 0; ; k++ {
			m := time.Date(start.Year(), start.Month()+time.Month(k*step), 1, 0, 0, 0, 0, time.UTC)
			if !yield(NthWeekdayOfMonth(m.Year(), m.Month(), wd, n)) {
				return
			}
		}
	}
}

// weeklyOn scans day by day and accepts days in every interval-th week counted from start
// whose weekday is selected (start's own weekday when none are).
func weeklyOn(start time.Time, c *compiled) iter.Seq[time.Time] {
	days := c.weekdays
	if !c.anyWeekday {
		days[start.Weekday()] = true
	}
	return func(yield func(time.Time) bool) {
		for k := 0; ; k++ {
			if (k/7)%c.interval != 0 {
				// jump to the first day of the next selected week
				k = ((k/7)/c.interval+1)*c.interval*7 - 1
				continue
			}
			d := start.AddDate(0, 0, k)
			if !days[d.Weekday()] {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}
