package calendar

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/recurrence"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

// MaxRangeDays bounds ListRange and exports.
const MaxRangeDays = 366

var clock = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// NewEvent is the body of POST /calendar/events.
type NewEvent struct {
	Date     string           `json:"date" validate:"required,isodate"`
	Time     string           `json:"time" validate:"omitempty,hhmm"`
	Name     string           `json:"name" validate:"required,max=200"`
	Category string           `json:"category" validate:"max=50"`
	Repeat   string           `json:"repeat" validate:"omitempty,max=20"`
	Rule     *recurrence.Rule `json:"rule"`
}

// EventPatch is the body of PUT /calendar/events/:date/:id. Nil fields are kept.
type EventPatch struct {
	Date     *string `json:"date" validate:"omitempty,isodate"`
	Time     *string `json:"time" validate:"omitempty,hhmm"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category *string `json:"category" validate:"omitempty,max=50"`
}

type Scheduler struct {
	store Store
	newID func() string
}

func NewScheduler(store Store) *Scheduler {
	return &Scheduler{store: store, newID: uuid.NewString}
}

func checkOwner(owner string) error {
	if owner == "" {
		return utils.Unauthorized("unauthorized")
	}
	return nil
}

func checkTime(t string) error {
	if t != "" && !clock.MatchString(t) {
		return utils.Validation("invalid_time", "time must be HH:MM")
	}
	return nil
}

// AddEvent expands ev.Repeat into dates and stores one event per date. Within a day an
// event in the same (time, name) slot is replaced. Expansions of more than one date
// share a fresh series id.
func (s *Scheduler) AddEvent(ctx context.Context, owner string, ev NewEvent) ([]Event, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(ev.Name)
	if name == "" {
		return nil, utils.Validation("name_required")
	}
	if err := checkTime(ev.Time); err != nil {
		return nil, err
	}
	mode, err := recurrence.ParseMode(ev.Repeat)
	if err != nil {
		return nil, err
	}
	dates, err := recurrence.GenerateStrings(ev.Date, mode, ev.Rule)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, utils.InvalidRecurrenceRule("rule yields no dates")
	}

	seriesID := ""
	if len(dates) > 1 {
		seriesID = s.newID()
	}
	created := make([]Event, len(dates))
	for i, d := range dates {
		created[i] = Event{
			ID:       s.newID(),
			Date:     d,
			Time:     ev.Time,
			Name:     name,
			Category: strings.TrimSpace(ev.Category),
			SeriesID: seriesID,
		}
	}

	err = s.store.Update(ctx, owner, dates, func(buckets map[string][]Event) error {
		for _, e := range created {
			buckets[e.Date] = upsert(buckets[e.Date], e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// EditEvent applies patch to the event id stored on date, moving it when the date changes.
// Taking the slot of a different event fails with event_exists.
func (s *Scheduler) EditEvent(ctx context.Context, owner, date, id string, patch EventPatch) (*Event, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	if _, err := recurrence.ParseDate(date); err != nil {
		return nil, err
	}
	target := date
	if patch.Date != nil {
		if _, err := recurrence.ParseDate(*patch.Date); err != nil {
			return nil, err
		}
		target = *patch.Date
	}
	if patch.Time != nil {
		if err := checkTime(*patch.Time); err != nil {
			return nil, err
		}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, utils.Validation("name_required")
	}

	var edited Event
	err := s.store.Update(ctx, owner, []string{date, target}, func(buckets map[string][]Event) error {
		src := buckets[date]
		i := indexOf(src, id)
		if i < 0 {
			return utils.NotFound("event_not_found")
		}
		ev := src[i]
		ev.Date = target
		if patch.Time != nil {
			ev.Time = *patch.Time
		}
		if patch.Name != nil {
			ev.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			ev.Category = strings.TrimSpace(*patch.Category)
		}

		buckets[date] = slices.Delete(slices.Clone(src), i, i+1)
		for _, other := range buckets[target] {
			if other.ID != id && other.sameSlot(ev) {
				return utils.Conflict("event_exists")
			}
		}
		buckets[target] = append(buckets[target], ev)
		edited = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// DeleteEvent removes one event.
func (s *Scheduler) DeleteEvent(ctx context.Context, owner, date, id string) error {
	if err := checkOwner(owner); err != nil {
		return err
	}
	if _, err := recurrence.ParseDate(date); err != nil {
		return err
	}
	return s.store.Update(ctx, owner, []string{date}, func(buckets map[string][]Event) error {
		i := indexOf(buckets[date], id)
		if i < 0 {
			return utils.NotFound("event_not_found")
		}
		buckets[date] = slices.Delete(buckets[date], i, i+1)
		return nil
	})
}

// DeleteSeries removes every event of a series and returns how many were removed.
func (s *Scheduler) DeleteSeries(ctx context.Context, owner, seriesID string) (int, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	dates, err := s.store.SeriesDates(ctx, owner, seriesID)
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, utils.NotFound("series_not_found")
	}

	var removed int
	err = s.store.Update(ctx, owner, dates, func(buckets map[string][]Event) error {
		removed = 0
		for _, d := range dates {
			before := len(buckets[d])
			buckets[d] = slices.DeleteFunc(buckets[d], func(e Event) bool { return e.SeriesID == seriesID })
			removed += before - len(buckets[d])
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListRange returns the non-empty days between from and to inclusive, in date order.
func (s *Scheduler) ListRange(ctx context.Context, owner, from, to string) ([]Day, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	f, err := recurrence.ParseDate(from)
	if err != nil {
		return nil, err
	}
	t, err := recurrence.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if t.Before(f) {
		return nil, utils.Validation("invalid_range", "to must not be before from")
	}
	if t.Sub(f) > MaxRangeDays*24*time.Hour {
		return nil, utils.Validation("range_too_large")
	}

	buckets, err := s.store.Range(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}
	days := make([]Day, 0, len(buckets))
	for d, evs := range buckets {
		sortEvents(evs)
		days = append(days, Day{Date: d, Events: evs})
	}
	slices.SortFunc(days, func(a, b Day) int { return strings.Compare(a.Date, b.Date) })
	return days, nil
}

// Flatten lists the events of days in order.
func Flatten(days []Day) []Event {
	var out []Event
	for _, d := range days {
		out = append(out, d.Events...)
	}
	return out
}
