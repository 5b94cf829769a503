package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildbot/guildbot/internal/event_bus"
)

func newServiceFixture() (*ServiceImpl, *StubEventRepo, *event_bus.EventBus) {
	repo := NewStubEventRepo()
	bus := event_bus.NewEventBus()
	return NewEventService(repo, bus), repo, bus
}

func validEvent() Event {
	return Event{
		ChannelId: 100,
		Name:      "raid night",
		BeginDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		BeginTime: "18:00:00",
	}
}

func TestDeclareEvent_PublishesCreatedNotification(t *testing.T) {
	// given
	service, _, bus := newServiceFixture()
	var notified []int64
	event_bus.SubscribeTyped(bus, event_bus.EventCreatedType, func(e event_bus.EventT[event_bus.EventChanged]) error {
		notified = append(notified, e.Data.EventId)
		return nil
	})

	// when
	stored, err := service.DeclareEvent(context.Background(), validEvent())

	// then
	require.NoError(t, err)
	assert.Equal(t, []int64{stored.Id}, notified)
}

func TestDeclareEvent_HandlerFailureDoesNotFailTheCall(t *testing.T) {
	// given
	service, repo, bus := newServiceFixture()
	event_bus.SubscribeTyped(bus, event_bus.EventCreatedType, func(e event_bus.EventT[event_bus.EventChanged]) error {
		return assert.AnError
	})

	// when
	stored, err := service.DeclareEvent(context.Background(), validEvent())

	// then: the internal row is the source of truth
	require.NoError(t, err)
	assert.Contains(t, repo.Events, stored.Id)
}

func TestUpdateEvent_PublishesUpdatedNotification(t *testing.T) {
	// given
	service, _, bus := newServiceFixture()
	stored, err := service.DeclareEvent(context.Background(), validEvent())
	require.NoError(t, err)

	var notified []int64
	event_bus.SubscribeTyped(bus, event_bus.EventUpdatedType, func(e event_bus.EventT[event_bus.EventChanged]) error {
		notified = append(notified, e.Data.EventId)
		return nil
	})

	// when
	stored.Name = "raid night (moved)"
	_, err = service.UpdateEvent(context.Background(), stored)

	// then
	require.NoError(t, err)
	assert.Equal(t, []int64{stored.Id}, notified)
}

func TestDeleteEvent_PublishesDeletedNotification(t *testing.T) {
	// given
	service, _, bus := newServiceFixture()
	stored, err := service.DeclareEvent(context.Background(), validEvent())
	require.NoError(t, err)

	var notified []int64
	event_bus.SubscribeTyped(bus, event_bus.EventDeletedType, func(e event_bus.EventT[event_bus.EventDeleted]) error {
		notified = append(notified, e.Data.EventId)
		return nil
	})

	// when
	err = service.DeleteEvent(context.Background(), stored.Id)

	// then
	require.NoError(t, err)
	assert.Equal(t, []int64{stored.Id}, notified)
}

func TestDeleteEvent_MissingEventPublishesNothing(t *testing.T) {
	// given
	service, _, bus := newServiceFixture()
	published := false
	event_bus.SubscribeTyped(bus, event_bus.EventDeletedType, func(e event_bus.EventT[event_bus.EventDeleted]) error {
		published = true
		return nil
	})

	// when
	err := service.DeleteEvent(context.Background(), 999)

	// then
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.False(t, published)
}

func TestDeclareEvent_Validation(t *testing.T) {
	service, _, _ := newServiceFixture()

	tests := []struct {
		name  string
		event Event
	}{
		{"missing name", Event{BeginDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}},
		{"missing begin date", Event{Name: "raid night"}},
		{"end time without end date", Event{
			Name:      "raid night",
			BeginDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			EndTime:   "21:00:00",
		}},
		{"end before begin", Event{
			Name:      "raid night",
			BeginDate: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.DeclareEvent(context.Background(), tt.event)
			assert.Error(t, err)
		})
	}
}
