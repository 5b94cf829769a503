package feed

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/guildbot/guildbot/internal/event_bus"
	"github.com/guildbot/guildbot/pkg/event"
)

func newExporterFixture(t *testing.T, events ...event.Event) *Exporter {
	repo := event.NewStubEventRepo()
	service := event.NewEventService(repo, event_bus.NewEventBus())
	for _, e := range events {
		_, err := service.DeclareEvent(context.Background(), e)
		assert.NoError(t, err)
	}
	return NewExporter(service)
}

func TestWriteCalendar_EmptyFeedIsValid(t *testing.T) {
	exporter := newExporterFixture(t)

	var buf bytes.Buffer
	err := exporter.WriteCalendar(context.Background(), &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, buf.String(), "PRODID:-//guildbot//calendar feed//EN")
	assert.Contains(t, buf.String(), "END:VCALENDAR")
}

func TestWriteCalendar_TimedEvent(t *testing.T) {
	exporter := newExporterFixture(t, event.Event{
		Name:        "raid night",
		Description: "bring potions",
		BeginDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		BeginTime:   "18:00:00",
		EndDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndTime:     "21:00:00",
	})

	var buf bytes.Buffer
	err := exporter.WriteCalendar(context.Background(), &buf)

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "UID:1@guildbot")
	assert.Contains(t, out, "SUMMARY:raid night")
	assert.Contains(t, out, "DESCRIPTION:bring potions")
	assert.Contains(t, out, "DTSTART:20240601T180000Z")
	assert.Contains(t, out, "DTEND:20240601T210000Z")
}

func TestWriteCalendar_AllDayEventUsesDateValuesWithExclusiveEnd(t *testing.T) {
	exporter := newExporterFixture(t, event.Event{
		Name:      "guild anniversary",
		BeginDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	err := exporter.WriteCalendar(context.Background(), &buf)

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240601")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20240602")
}

func TestWriteCalendar_TimedEventWithoutEndGetsDefaultDuration(t *testing.T) {
	exporter := newExporterFixture(t, event.Event{
		Name:      "standup",
		BeginDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		BeginTime: "09:00:00",
	})

	var buf bytes.Buffer
	err := exporter.WriteCalendar(context.Background(), &buf)

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "DTSTART:20240601T090000Z")
	assert.Contains(t, out, "DTEND:20240601T100000Z")
}
