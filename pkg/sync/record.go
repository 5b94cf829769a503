package sync

import "time"

// Record maps an internal event, for one user, to its external calendar
// event. A record exists only after the external create was acknowledged;
// it is the durable source of truth for "this external event is owed an
// update or a delete".
type Record struct {
	ExternalEventId string
	UserId          int64
	EventId         int64
	SyncedAt        time.Time
}
