package calendar

import (
	"slices"
	"strings"
)

// Event is one scheduled item on one day. Events created together by a repeating
// rule share a SeriesID.
type Event struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	SeriesID string `json:"series_id,omitempty"`
}

// sameSlot reports whether two events occupy the same (time, name) slot of a day.
func (e Event) sameSlot(o Event) bool {
	return e.Time == o.Time && strings.EqualFold(e.Name, o.Name)
}

// Day is a date bucket as returned by ListRange.
type Day struct {
	Date   string  `json:"date"`
	Events []Event `json:"events"`
}

// upsert replaces the event holding ev's slot, or appends ev.
func upsert(bucket []Event, ev Event) []Event {
	for i := range bucket {
		if bucket[i].sameSlot(ev) {
			bucket[i] = ev
			return bucket
		}
	}
	return append(bucket, ev)
}

func indexOf(bucket []Event, id string) int {
	return slices.IndexFunc(bucket, func(e Event) bool { return e.ID == id })
}

func sortEvents(bucket []Event) {
	slices.SortStableFunc(bucket, func(a, b Event) int {
		// untimed events first
		if c := strings.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

func seriesIn(bucket []Event) map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range bucket {
		if e.SeriesID != "" {
			out[e.SeriesID] = struct{}{}
		}
	}
	return out
}
