package sync

import (
	"errors"
	"fmt"
)

// ErrDuplicateRecord is returned when inserting a record that collides with
// an existing one for the same (user, event) pair or the same external id.
var ErrDuplicateRecord = errors.New("sync record already exists")

// ErrRecordNotFound is returned when no record matches the given keys.
var ErrRecordNotFound = errors.New("sync record not found")

// Phase identifies the step of the synchronization pipeline that failed.
type Phase string

const (
	PhaseCalendar Phase = "calendar"
	PhaseAcl      Phase = "acl"
	PhaseUpsert   Phase = "upsert"
	PhaseDelete   Phase = "delete"
)

// SyncError carries the pipeline phase alongside the underlying cause so
// callers can tell a provisioning failure apart from an event write failure.
type SyncError struct {
	Phase   Phase
	UserId  int64
	EventId int64
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s failed (user=%d event=%d): %v", e.Phase, e.UserId, e.EventId, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func syncErr(phase Phase, userId int64, eventId int64, err error) *SyncError {
	return &SyncError{Phase: phase, UserId: userId, EventId: eventId, Err: err}
}
