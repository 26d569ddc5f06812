package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mnuddindev/cookpulse/internal/recurrence"
)

const (
	ICSProductID     = "-//cookpulse//meal planner//EN"
	icsStampLayout   = "20060102T150405Z"
	icsDateLayout    = "20060102"
	icsLocalLayout   = "20060102T150405"
	defaultEventSpan = time.Hour
)

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// WriteICS renders events as an iCalendar document. Untimed events become all-day
// entries; timed ones last an hour in floating local time.
func WriteICS(w io.Writer, calendarName string, events []Event, now time.Time) error {
	bw := bufio.NewWriter(w)
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format+"\r\n", args...)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:%s", ICSProductID)
	line("CALSCALE:GREGORIAN")
	line("X-WR-CALNAME:%s", icsEscaper.Replace(calendarName))

	stamp := now.UTC().Format(icsStampLayout)
	for _, e := range events {
		day, err := recurrence.ParseDate(e.Date)
		if err != nil {
			continue
		}
		line("BEGIN:VEVENT")
		line("UID:%s@cookpulse", e.ID)
		line("DTSTAMP:%s", stamp)
		if start, ok := eventStart(day, e.Time); ok {
			line("DTSTART:%s", start.Format(icsLocalLayout))
			line("DTEND:%s", start.Add(defaultEventSpan).Format(icsLocalLayout))
		} else {
			line("DTSTART;VALUE=DATE:%s", day.Format(icsDateLayout))
			line("DTEND;VALUE=DATE:%s", day.AddDate(0, 0, 1).Format(icsDateLayout))
		}
		line("SUMMARY:%s", icsEscaper.Replace(e.Name))
		if e.Category != "" {
			line("CATEGORIES:%s", icsEscaper.Replace(e.Category))
		}
		if e.SeriesID != "" {
			line("RELATED-TO:%s@cookpulse", e.SeriesID)
		}
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
	return bw.Flush()
}

func eventStart(day time.Time, hhmm string) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), true
}
