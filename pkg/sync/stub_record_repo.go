package sync

import (
	"context"
	gosync "sync"
	"time"
)

type recordKey struct {
	userId  int64
	eventId int64
}

type StubRecordRepo struct {
	mu      gosync.Mutex
	Records map[recordKey]Record
	// LiveEvents drives ListOrphaned: records whose event id is absent here
	// are reported as orphans.
	LiveEvents map[int64]bool
}

func NewStubRecordRepo() *StubRecordRepo {
	return &StubRecordRepo{
		Records:    make(map[recordKey]Record),
		LiveEvents: make(map[int64]bool),
	}
}

func (r *StubRecordRepo) Find(_ context.Context, userId int64, eventId int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.Records[recordKey{userId, eventId}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

func (r *StubRecordRepo) Insert(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey{record.UserId, record.EventId}
	if _, ok := r.Records[key]; ok {
		return ErrDuplicateRecord
	}
	for _, existing := range r.Records {
		if existing.ExternalEventId == record.ExternalEventId && existing.UserId == record.UserId {
			return ErrDuplicateRecord
		}
	}
	r.Records[key] = record
	return nil
}

func (r *StubRecordRepo) Touch(_ context.Context, userId int64, eventId int64, externalEventId string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey{userId, eventId}
	record, ok := r.Records[key]
	if !ok {
		return ErrRecordNotFound
	}
	record.ExternalEventId = externalEventId
	if syncedAt.After(record.SyncedAt) {
		record.SyncedAt = syncedAt
	}
	r.Records[key] = record
	return nil
}

func (r *StubRecordRepo) Delete(_ context.Context, externalEventId string, userId int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, record := range r.Records {
		if record.ExternalEventId == externalEventId && record.UserId == userId {
			delete(r.Records, key)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (r *StubRecordRepo) ListForEvent(_ context.Context, eventId int64) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []Record
	for _, record := range r.Records {
		if record.EventId == eventId {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r *StubRecordRepo) ListOrphaned(_ context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []Record
	for _, record := range r.Records {
		if !r.LiveEvents[record.EventId] {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r *StubRecordRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Records)
}
