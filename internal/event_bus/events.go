package event_bus

const (
	EventCreatedType EventType = "event.created"
	EventUpdatedType EventType = "event.updated"
	EventDeletedType EventType = "event.deleted"
)

// EventChanged is the payload for event.created and event.updated.
type EventChanged struct {
	EventId int64
}

// EventDeleted is the payload for event.deleted. The row is already gone
// when this fires; subscribers work from sync records only.
type EventDeleted struct {
	EventId int64
}
