package sync

import (
	"context"
	"errors"
	gosync "sync"

	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/utils"
	"github.com/guildbot/guildbot/pkg/event"
	"github.com/guildbot/guildbot/pkg/google"
	"github.com/guildbot/guildbot/pkg/user"
)

// Engine reconciles internal events with each user's external calendar.
// All operations are safe to retry: provisioning is recorded at most once
// per user, and event writes are keyed by durable sync records.
type Engine interface {
	SyncEventForUser(ctx context.Context, userId int64, e event.Event) error
	SyncEventForAll(ctx context.Context, eventId int64) error
	CleanupEvent(ctx context.Context, eventId int64) error
	RetryPendingDeletes(ctx context.Context) error
	ShareCalendar(ctx context.Context, userId int64) (string, error)
	UnshareCalendar(ctx context.Context, userId int64) error
}

type EngineImpl struct {
	users   user.Repo
	events  event.Repository
	records RecordRepository
	gateway google.Gateway
	clock   utils.Clock
}

func NewEngine(
	users user.Repo,
	events event.Repository,
	records RecordRepository,
	gateway google.Gateway,
	clock utils.Clock,
) *EngineImpl {
	return &EngineImpl{
		users:   users,
		events:  events,
		records: records,
		gateway: gateway,
		clock:   clock,
	}
}

// SyncEventForUser pushes one event to one user's calendar, provisioning the
// calendar and ACL grant on first contact. Each step persists its outcome
// before the next one runs, so a failure mid-pipeline leaves a state a retry
// can pick up from.
func (s *EngineImpl) SyncEventForUser(ctx context.Context, userId int64, e event.Event) error {
	u, err := s.users.Get(ctx, userId)
	if err != nil {
		return syncErr(PhaseCalendar, userId, e.Id, err)
	}

	calendarId, err := s.ensureCalendar(ctx, u, e.Id)
	if err != nil {
		return err
	}
	u.CalendarId = calendarId

	if err := s.ensureAcl(ctx, u, e.Id); err != nil {
		return err
	}

	return s.upsertEvent(ctx, u, e)
}

// ensureCalendar returns the user's calendar id, provisioning a calendar on
// first use. When a concurrent sync provisioned one first, the freshly stored
// id wins and is returned.
func (s *EngineImpl) ensureCalendar(ctx context.Context, u user.User, eventId int64) (string, error) {
	if u.CalendarId != "" {
		return u.CalendarId, nil
	}
	calendarId, err := s.gateway.ResolveOrCreateCalendar(ctx, u)
	if err != nil {
		return "", syncErr(PhaseCalendar, u.Id, eventId, err)
	}
	err = s.users.SetCalendarId(ctx, u.Id, calendarId)
	if errors.Is(err, user.ErrAlreadyProvisioned) {
		fresh, getErr := s.users.Get(ctx, u.Id)
		if getErr != nil {
			return "", syncErr(PhaseCalendar, u.Id, eventId, getErr)
		}
		log.WithFields(log.Fields{"userId": u.Id, "calendarId": fresh.CalendarId}).
			Debug("Calendar already provisioned by a concurrent sync")
		return fresh.CalendarId, nil
	}
	if err != nil {
		return "", syncErr(PhaseCalendar, u.Id, eventId, err)
	}
	return calendarId, nil
}

// ensureAcl shares the calendar with the user's linked external account. The
// step is skipped entirely when no account is linked. When a concurrent sync
// stored a grant first, the extra grant created here is revoked so the
// calendar never carries two.
func (s *EngineImpl) ensureAcl(ctx context.Context, u user.User, eventId int64) error {
	if u.AclId != "" || u.ExternalEmail == "" {
		return nil
	}
	aclId, err := s.gateway.GrantAccess(ctx, u.CalendarId, u.ExternalEmail)
	if err != nil {
		return syncErr(PhaseAcl, u.Id, eventId, err)
	}
	err = s.users.SetAclId(ctx, u.Id, aclId)
	if errors.Is(err, user.ErrAlreadyProvisioned) {
		log.WithFields(log.Fields{"userId": u.Id, "aclId": aclId}).
			Debug("Access already granted by a concurrent sync, revoking the extra grant")
		if revokeErr := s.gateway.RevokeAccess(ctx, u.CalendarId, aclId); revokeErr != nil {
			log.WithError(revokeErr).WithField("aclId", aclId).
				Warn("Failed to revoke redundant access grant")
		}
		return nil
	}
	if err != nil {
		return syncErr(PhaseAcl, u.Id, eventId, err)
	}
	return nil
}

func (s *EngineImpl) upsertEvent(ctx context.Context, u user.User, e event.Event) error {
	record, err := s.records.Find(ctx, u.Id, e.Id)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return syncErr(PhaseUpsert, u.Id, e.Id, err)
	}

	if record != nil {
		externalId, err := s.gateway.UpsertEvent(ctx, u.CalendarId, record.ExternalEventId, e)
		if err != nil {
			return syncErr(PhaseUpsert, u.Id, e.Id, err)
		}
		if err := s.records.Touch(ctx, u.Id, e.Id, externalId, s.clock.Now()); err != nil {
			return syncErr(PhaseUpsert, u.Id, e.Id, err)
		}
		return nil
	}

	externalId, err := s.gateway.UpsertEvent(ctx, u.CalendarId, "", e)
	if err != nil {
		return syncErr(PhaseUpsert, u.Id, e.Id, err)
	}
	err = s.records.Insert(ctx, Record{
		ExternalEventId: externalId,
		UserId:          u.Id,
		EventId:         e.Id,
		SyncedAt:        s.clock.Now(),
	})
	if errors.Is(err, ErrDuplicateRecord) {
		// A concurrent sync created the record first. Its external event
		// wins; ours stays orphaned on the remote calendar.
		log.WithFields(log.Fields{"userId": u.Id, "eventId": e.Id, "externalEventId": externalId}).
			Warn("Lost insert race, switching to the recorded external event")
		winner, findErr := s.records.Find(ctx, u.Id, e.Id)
		if findErr != nil {
			return syncErr(PhaseUpsert, u.Id, e.Id, findErr)
		}
		if _, updateErr := s.gateway.UpsertEvent(ctx, u.CalendarId, winner.ExternalEventId, e); updateErr != nil {
			return syncErr(PhaseUpsert, u.Id, e.Id, updateErr)
		}
		if touchErr := s.records.Touch(ctx, u.Id, e.Id, winner.ExternalEventId, s.clock.Now()); touchErr != nil {
			return syncErr(PhaseUpsert, u.Id, e.Id, touchErr)
		}
		return nil
	}
	if err != nil {
		return syncErr(PhaseUpsert, u.Id, e.Id, err)
	}
	return nil
}

// SyncEventForAll fans the event out to every registered user, one goroutine
// per user. Per-user failures are logged and joined; one user's failure does
// not stop the others.
func (s *EngineImpl) SyncEventForAll(ctx context.Context, eventId int64) error {
	e, err := s.events.Get(ctx, eventId)
	if err != nil {
		return err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}

	var wg gosync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, userId int64) {
			defer wg.Done()
			if err := s.SyncEventForUser(ctx, userId, e); err != nil {
				log.WithError(err).WithFields(log.Fields{"userId": userId, "eventId": eventId}).
					Error("Failed to sync event for user")
				errs[i] = err
			}
		}(i, u.Id)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// CleanupEvent removes the event from every calendar it was pushed to. Each
// record is deleted only after the remote delete is acknowledged; records of
// failed deletes survive for RetryPendingDeletes.
func (s *EngineImpl) CleanupEvent(ctx context.Context, eventId int64) error {
	records, err := s.records.ListForEvent(ctx, eventId)
	if err != nil {
		return err
	}
	return s.deleteRecords(ctx, records)
}

// RetryPendingDeletes retries the remote deletes owed by records whose event
// row is already gone.
func (s *EngineImpl) RetryPendingDeletes(ctx context.Context) error {
	records, err := s.records.ListOrphaned(ctx)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		log.WithField("count", len(records)).Info("Retrying pending remote deletes")
	}
	return s.deleteRecords(ctx, records)
}

func (s *EngineImpl) deleteRecords(ctx context.Context, records []Record) error {
	var errs []error
	for _, record := range records {
		u, err := s.users.Get(ctx, record.UserId)
		if err != nil {
			errs = append(errs, syncErr(PhaseDelete, record.UserId, record.EventId, err))
			continue
		}
		if err := s.gateway.DeleteEvent(ctx, u.CalendarId, record.ExternalEventId); err != nil {
			errs = append(errs, syncErr(PhaseDelete, record.UserId, record.EventId, err))
			continue
		}
		err = s.records.Delete(ctx, record.ExternalEventId, record.UserId)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			errs = append(errs, syncErr(PhaseDelete, record.UserId, record.EventId, err))
		}
	}
	return errors.Join(errs...)
}

// ShareCalendar provisions the user's calendar and ACL grant without waiting
// for an event to trigger it, and returns the calendar id.
func (s *EngineImpl) ShareCalendar(ctx context.Context, userId int64) (string, error) {
	u, err := s.users.Get(ctx, userId)
	if err != nil {
		return "", syncErr(PhaseCalendar, userId, 0, err)
	}
	if u.ExternalEmail == "" {
		return "", syncErr(PhaseAcl, userId, 0, errors.New("no external account linked"))
	}
	calendarId, err := s.ensureCalendar(ctx, u, 0)
	if err != nil {
		return "", err
	}
	u.CalendarId = calendarId
	if err := s.ensureAcl(ctx, u, 0); err != nil {
		return "", err
	}
	return calendarId, nil
}

// UnshareCalendar revokes the user's ACL grant. The calendar and its synced
// events stay in place so a later share picks up where it left off.
func (s *EngineImpl) UnshareCalendar(ctx context.Context, userId int64) error {
	u, err := s.users.Get(ctx, userId)
	if err != nil {
		return syncErr(PhaseAcl, userId, 0, err)
	}
	if u.AclId == "" {
		return nil
	}
	if err := s.gateway.RevokeAccess(ctx, u.CalendarId, u.AclId); err != nil {
		return syncErr(PhaseAcl, userId, 0, err)
	}
	if err := s.users.ClearAclId(ctx, userId); err != nil {
		return syncErr(PhaseAcl, userId, 0, err)
	}
	return nil
}
