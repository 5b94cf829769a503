package google

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/guildbot/guildbot/pkg/event"
	"github.com/guildbot/guildbot/pkg/user"
)

// StubGateway is an in-memory Gateway with per-operation failure injection.
// Safe for concurrent use so fan-out tests can hit it from many goroutines.
type StubGateway struct {
	mu sync.Mutex

	Calendars map[int64]string                  // user id -> calendar id
	Grants    map[string]map[string]bool        // calendar id -> acl id -> active
	Events    map[string]map[string]event.Event // calendar id -> external id -> payload

	FailResolve error
	FailGrant   error
	FailRevoke  error
	FailUpsert  error
	FailDelete  error

	ResolveCalls int
	GrantCalls   int
	InsertCalls  int
	UpdateCalls  int
	DeleteCalls  int
}

func NewStubGateway() *StubGateway {
	return &StubGateway{
		Calendars: map[int64]string{},
		Grants:    map[string]map[string]bool{},
		Events:    map[string]map[string]event.Event{},
	}
}

func (s *StubGateway) ResolveOrCreateCalendar(ctx context.Context, u user.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResolveCalls++
	if s.FailResolve != nil {
		return "", s.FailResolve
	}
	if id, ok := s.Calendars[u.Id]; ok {
		return id, nil
	}
	id := "cal-" + uuid.NewString()
	s.Calendars[u.Id] = id
	s.Events[id] = map[string]event.Event{}
	return id, nil
}

func (s *StubGateway) GrantAccess(ctx context.Context, calendarId, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GrantCalls++
	if s.FailGrant != nil {
		return "", s.FailGrant
	}
	id := "acl-" + uuid.NewString()
	if s.Grants[calendarId] == nil {
		s.Grants[calendarId] = map[string]bool{}
	}
	s.Grants[calendarId][id] = true
	return id, nil
}

func (s *StubGateway) RevokeAccess(ctx context.Context, calendarId, aclId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRevoke != nil {
		return s.FailRevoke
	}
	delete(s.Grants[calendarId], aclId)
	return nil
}

func (s *StubGateway) UpsertEvent(ctx context.Context, calendarId, externalId string, e event.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpsert != nil {
		return "", s.FailUpsert
	}
	if s.Events[calendarId] == nil {
		s.Events[calendarId] = map[string]event.Event{}
	}
	if externalId == "" {
		s.InsertCalls++
		externalId = "ext-" + uuid.NewString()
	} else {
		s.UpdateCalls++
	}
	s.Events[calendarId][externalId] = e
	return externalId, nil
}

func (s *StubGateway) DeleteEvent(ctx context.Context, calendarId, externalId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls++
	if s.FailDelete != nil {
		return s.FailDelete
	}
	delete(s.Events[calendarId], externalId)
	return nil
}

// EventCount reports the total number of remote events across calendars.
func (s *StubGateway) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, events := range s.Events {
		n += len(events)
	}
	return n
}
