package v1

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/mnuddindev/cookpulse/internal/calendar"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

const (
	dateLayout       = "2006-01-02"
	defaultRangeDays = 30
)

func calendarOwner(c *fiber.Ctx) (string, error) {
	uid, err := currentUser(c)
	if err != nil {
		return "", err
	}
	if Calendar == nil {
		return "", utils.Transient("calendar_unavailable")
	}
	return uid.String(), nil
}

// rangeQuery reads ?from=&to=, defaulting to the next defaultRangeDays days.
func rangeQuery(c *fiber.Ctx) (string, string) {
	today := Now()
	from := c.Query("from", today.Format(dateLayout))
	to := c.Query("to", today.AddDate(0, 0, defaultRangeDays).Format(dateLayout))
	return from, to
}

// AddEvent handles POST /calendar/events. A repeat mode expands into a series.
func AddEvent(c *fiber.Ctx) error {
	owner, err := calendarOwner(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var ev calendar.NewEvent
	if err := parseBody(c, &ev); err != nil {
		return utils.SendError(c, err)
	}

	created, err := Calendar.AddEvent(c.UserContext(), owner, ev)
	if err != nil {
		return utils.SendError(c, err)
	}
	b := utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("created").
		WithData("events", created)
	if len(created) > 1 {
		b = b.WithData("series_id", created[0].SeriesID)
	}
	return b.Send()
}

// ListEvents handles GET /calendar/events?from=&to=.
func ListEvents(c *fiber.Ctx) error {
	owner, err := calendarOwner(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	from, to := rangeQuery(c)
	days, err := Calendar.ListRange(c.UserContext(), owner, from, to)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithData("from", from).
		WithData("to", to).
		WithData("days", days).
		Send()
}

// EditEvent handles PUT /calendar/events/:date/:id.
func EditEvent(c *fiber.Ctx) error {
	owner, err := calendarOwner(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var patch calendar.EventPatch
	if err := parseBody(c, &patch); err != nil {
		return utils.SendError(c, err)
	}
	ev, err := Calendar.EditEvent(c.UserContext(), owner, c.Params("date"), c.Params("id"), patch)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("updated").WithData("event", ev).Send()
}

func DeleteEvent(c *fiber.Ctx) error {
	owner, err := calendarOwner(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	if err := Calendar.DeleteEvent(c.UserContext(), owner, c.Params("date"), c.Params("id")); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("deleted").WithData("id", c.Params("id")).Send()
}

// DeleteSeries handles DELETE /calendar/series/:seriesId.
func DeleteSeries(c *fiber.Ctx) error {
	owner, err := calendarOwner(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	n, err := Calendar.DeleteSeries(c.UserContext(), owner, c.Params("seriesId"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("deleted").WithData("removed", n).Send()
}

// ExportCalendar serves the events of a range as text/calendar.
func ExportCalendar(c *fiber.Ctx) error {
	owner, err := calendarOwner(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	from, to := rangeQuery(c)
	days, err := Calendar.ListRange(c.UserContext(), owner, from, to)
	if err != nil {
		return utils.SendError(c, err)
	}

	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, "CookPulse meal plan", calendar.Flatten(days), Now()); err != nil {
		Logger.Error(c.UserContext()).WithError(err).Logs("Failed to render calendar export")
		return utils.SendError(c, utils.ErrInternalServerError.WithCause(err))
	}
	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="cookpulse.ics"`)
	return c.Send(buf.Bytes())
}
