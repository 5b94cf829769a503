package sync

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/event_bus"
)

// RegisterSubscriptions wires the engine to event lifecycle notifications.
// Synchronization runs off the publishing goroutine on a context detached
// from the request, so an HTTP response is never held up by remote calls.
func RegisterSubscriptions(bus *event_bus.EventBus, engine Engine) {
	onChange := func(e event_bus.EventT[event_bus.EventChanged]) error {
		ctx := context.WithoutCancel(e.Context())
		go func() {
			if err := engine.SyncEventForAll(ctx, e.Data.EventId); err != nil {
				log.WithError(err).WithField("eventId", e.Data.EventId).
					Error("Background event sync failed")
			}
		}()
		return nil
	}
	event_bus.SubscribeTyped(bus, event_bus.EventCreatedType, onChange)
	event_bus.SubscribeTyped(bus, event_bus.EventUpdatedType, onChange)

	event_bus.SubscribeTyped(bus, event_bus.EventDeletedType, func(e event_bus.EventT[event_bus.EventDeleted]) error {
		ctx := context.WithoutCancel(e.Context())
		go func() {
			if err := engine.CleanupEvent(ctx, e.Data.EventId); err != nil {
				log.WithError(err).WithField("eventId", e.Data.EventId).
					Error("Background event cleanup failed")
			}
		}()
		return nil
	})
}
