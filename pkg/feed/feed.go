package feed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/guildbot/guildbot/pkg/event"
)

const productId = "-//guildbot//calendar feed//EN"

// Exporter renders declared events as an iCalendar document, for members who
// prefer a feed subscription over a shared external calendar.
type Exporter struct {
	events event.Service
}

func NewExporter(events event.Service) *Exporter {
	return &Exporter{events: events}
}

// WriteCalendar encodes all events into w as a single VCALENDAR.
func (x *Exporter) WriteCalendar(ctx context.Context, w io.Writer) error {
	events, err := x.events.ListEvents(ctx)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productId)

	now := time.Now().UTC()
	for _, e := range events {
		cal.Children = append(cal.Children, toComponent(e, now))
	}

	return ical.NewEncoder(w).Encode(cal)
}

func toComponent(e event.Event, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("%d@guildbot", e.Id))
	ve.Props.SetText(ical.PropSummary, e.Name)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}

	if e.AllDay() {
		start := ical.NewProp(ical.PropDateTimeStart)
		start.SetDate(e.BeginDate)
		ve.Props.Set(start)
		end := ical.NewProp(ical.PropDateTimeEnd)
		// DTEND is exclusive for all-day events.
		end.SetDate(exclusiveEnd(e))
		ve.Props.Set(end)
		return ve
	}

	ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartAt(time.UTC))
	endAt := e.EndAt(time.UTC)
	if !endAt.After(e.StartAt(time.UTC)) {
		endAt = e.StartAt(time.UTC).Add(time.Hour)
	}
	ve.Props.SetDateTime(ical.PropDateTimeEnd, endAt)
	return ve
}

func exclusiveEnd(e event.Event) time.Time {
	if e.EndDate.IsZero() {
		return e.BeginDate.AddDate(0, 0, 1)
	}
	return e.EndDate.AddDate(0, 0, 1)
}
