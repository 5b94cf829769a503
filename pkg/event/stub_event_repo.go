package event

import (
	"context"
	"time"
)

type StubEventRepo struct {
	Events map[int64]Event
	nextId int64
}

func NewStubEventRepo() *StubEventRepo {
	return &StubEventRepo{Events: map[int64]Event{}}
}

func (s *StubEventRepo) Store(ctx context.Context, e Event) (Event, error) {
	s.nextId++
	e.Id = s.nextId
	e.CreatedAt = time.Now()
	e.ModifiedAt = e.CreatedAt
	s.Events[e.Id] = e
	return e, nil
}

func (s *StubEventRepo) Update(ctx context.Context, e Event) (Event, error) {
	stored, ok := s.Events[e.Id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	e.CreatedAt = stored.CreatedAt
	e.ModifiedAt = time.Now()
	s.Events[e.Id] = e
	return e, nil
}

func (s *StubEventRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.Events[id]; !ok {
		return ErrEventNotFound
	}
	delete(s.Events, id)
	return nil
}

func (s *StubEventRepo) Get(ctx context.Context, id int64) (Event, error) {
	e, ok := s.Events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return e, nil
}

func (s *StubEventRepo) List(ctx context.Context) ([]Event, error) {
	events := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		events = append(events, e)
	}
	return events, nil
}
