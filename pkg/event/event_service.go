package event

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/event_bus"
)

type Service interface {
	DeclareEvent(ctx context.Context, e Event) (Event, error)
	UpdateEvent(ctx context.Context, e Event) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	GetEvent(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
}

// ServiceImpl owns the internal event records. The internal row is the
// durable source of truth: external propagation happens through bus
// subscribers and its failure never touches the row.
type ServiceImpl struct {
	repo Repository
	bus  *event_bus.EventBus
}

func NewEventService(repo Repository, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus}
}

func (s *ServiceImpl) DeclareEvent(ctx context.Context, e Event) (Event, error) {
	if err := validate(e); err != nil {
		return Event{}, err
	}
	stored, err := s.repo.Store(ctx, e)
	if err != nil {
		return Event{}, err
	}
	log.Infof("declared event %d (%s)", stored.Id, stored.Name)

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.EventCreatedType, event_bus.EventChanged{EventId: stored.Id})); err != nil {
		log.Errorf("event.created handler failed for event %d: %v", stored.Id, err)
	}
	return stored, nil
}

func (s *ServiceImpl) UpdateEvent(ctx context.Context, e Event) (Event, error) {
	if err := validate(e); err != nil {
		return Event{}, err
	}
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return Event{}, err
	}
	log.Infof("updated event %d (%s)", updated.Id, updated.Name)

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.EventUpdatedType, event_bus.EventChanged{EventId: updated.Id})); err != nil {
		log.Errorf("event.updated handler failed for event %d: %v", updated.Id, err)
	}
	return updated, nil
}

func (s *ServiceImpl) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Infof("deleted event %d", id)

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.EventDeletedType, event_bus.EventDeleted{EventId: id})); err != nil {
		log.Errorf("event.deleted handler failed for event %d: %v", id, err)
	}
	return nil
}

func (s *ServiceImpl) GetEvent(ctx context.Context, id int64) (Event, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) ListEvents(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

func validate(e Event) error {
	if e.Name == "" {
		return fmt.Errorf("event name is required")
	}
	if e.BeginDate.IsZero() {
		return fmt.Errorf("event begin date is required")
	}
	if e.EndDate.IsZero() && e.EndTime != "" {
		return fmt.Errorf("end time requires an end date")
	}
	if !e.EndDate.IsZero() && e.EndDate.Before(e.BeginDate) {
		return fmt.Errorf("end date precedes begin date")
	}
	return nil
}
