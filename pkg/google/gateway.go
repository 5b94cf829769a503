package google

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/guildbot/guildbot/pkg/credential"
	"github.com/guildbot/guildbot/pkg/event"
	"github.com/guildbot/guildbot/pkg/user"
)

// Gateway is the complete operation surface this system needs from the
// external calendar service.
type Gateway interface {
	// ResolveOrCreateCalendar returns the calendar belonging to the user,
	// creating it when absent. Resolution is idempotent by user identity:
	// repeated calls never create a second calendar.
	ResolveOrCreateCalendar(ctx context.Context, u user.User) (string, error)
	// GrantAccess shares the calendar with the given external account and
	// returns the ACL grant id.
	GrantAccess(ctx context.Context, calendarId, email string) (string, error)
	RevokeAccess(ctx context.Context, calendarId, aclId string) error
	// UpsertEvent creates the event when externalId is empty, otherwise
	// updates the identified event in place. Returns the external event id.
	UpsertEvent(ctx context.Context, calendarId, externalId string, e event.Event) (string, error)
	DeleteEvent(ctx context.Context, calendarId, externalId string) error
}

type GatewayImpl struct {
	issuer  *credential.Issuer
	timeout time.Duration
}

func NewGateway(issuer *credential.Issuer, timeout time.Duration) *GatewayImpl {
	return &GatewayImpl{issuer: issuer, timeout: timeout}
}

// prepareService builds a calendar client carrying the current signed
// assertion as a bearer token. Built per call, like every other state here:
// no cached service can outlive its credential.
func (g *GatewayImpl) prepareService(ctx context.Context) (*gcal.Service, error) {
	assertion, err := g.issuer.Issue()
	if err != nil {
		return nil, err
	}
	service, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: assertion.Token,
		TokenType:   "Bearer",
		Expiry:      assertion.ExpiresAt,
	})))
	if err != nil {
		err := fmt.Errorf("unable to build calendar client: %w", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}

// call runs op with a bounded timeout and at most one auth-refresh retry:
// when the remote rejects the assertion, the held token is dropped, a fresh
// one is signed, and the call is repeated exactly once.
func (g *GatewayImpl) call(ctx context.Context, name string, op func(ctx context.Context, svc *gcal.Service) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	service, err := g.prepareService(ctx)
	if err != nil {
		return err
	}
	err = op(ctx, service)
	if err != nil && authRejected(err) {
		log.Infof("assertion rejected during %s, re-issuing and retrying once", name)
		g.issuer.Invalidate()
		service, err = g.prepareService(ctx)
		if err != nil {
			return err
		}
		err = op(ctx, service)
	}
	if err != nil {
		remoteErr := classify(name, err)
		log.Errorf("%v", remoteErr)
		return remoteErr
	}
	return nil
}

// calendarSummary is the idempotency key for per-user calendars: resolution
// matches on it, so it must be stable for the lifetime of the user.
func calendarSummary(u user.User) string {
	return fmt.Sprintf("guildbot:%d", u.Id)
}

func (g *GatewayImpl) ResolveOrCreateCalendar(ctx context.Context, u user.User) (string, error) {
	summary := calendarSummary(u)
	var calendarId string

	err := g.call(ctx, "resolve calendar", func(ctx context.Context, svc *gcal.Service) error {
		pageToken := ""
		for {
			listCall := svc.CalendarList.List().Context(ctx)
			if pageToken != "" {
				listCall = listCall.PageToken(pageToken)
			}
			list, err := listCall.Do()
			if err != nil {
				return err
			}
			for _, item := range list.Items {
				if item.Summary == summary {
					calendarId = item.Id
					return nil
				}
			}
			if list.NextPageToken == "" {
				return nil
			}
			pageToken = list.NextPageToken
		}
	})
	if err != nil {
		return "", err
	}
	if calendarId != "" {
		log.Debugf("resolved existing calendar %s for user %d", calendarId, u.Id)
		return calendarId, nil
	}

	err = g.call(ctx, "create calendar", func(ctx context.Context, svc *gcal.Service) error {
		created, err := svc.Calendars.Insert(&gcal.Calendar{
			Summary:     summary,
			Description: fmt.Sprintf("Events for %s", u.DisplayName),
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		calendarId = created.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Infof("created calendar %s for user %d", calendarId, u.Id)
	return calendarId, nil
}

func (g *GatewayImpl) GrantAccess(ctx context.Context, calendarId, email string) (string, error) {
	var aclId string
	err := g.call(ctx, "grant access", func(ctx context.Context, svc *gcal.Service) error {
		rule, err := svc.Acl.Insert(calendarId, &gcal.AclRule{
			Role: "reader",
			Scope: &gcal.AclRuleScope{
				Type:  "user",
				Value: email,
			},
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		aclId = rule.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Infof("granted access to calendar %s for %s", calendarId, email)
	return aclId, nil
}

func (g *GatewayImpl) RevokeAccess(ctx context.Context, calendarId, aclId string) error {
	err := g.call(ctx, "revoke access", func(ctx context.Context, svc *gcal.Service) error {
		err := svc.Acl.Delete(calendarId, aclId).Context(ctx).Do()
		if err != nil && notFound(err) {
			// Grant already gone remotely; revocation is done.
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	log.Infof("revoked acl %s on calendar %s", aclId, calendarId)
	return nil
}

func (g *GatewayImpl) UpsertEvent(ctx context.Context, calendarId, externalId string, e event.Event) (string, error) {
	payload := eventToGoogleEvent(e)
	resultId := externalId

	err := g.call(ctx, "upsert event", func(ctx context.Context, svc *gcal.Service) error {
		if externalId == "" {
			created, err := svc.Events.Insert(calendarId, payload).Context(ctx).Do()
			if err != nil {
				return err
			}
			resultId = created.Id
			return nil
		}
		_, err := svc.Events.Update(calendarId, externalId, payload).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return resultId, nil
}

func (g *GatewayImpl) DeleteEvent(ctx context.Context, calendarId, externalId string) error {
	return g.call(ctx, "delete event", func(ctx context.Context, svc *gcal.Service) error {
		err := svc.Events.Delete(calendarId, externalId).Context(ctx).Do()
		if err != nil && notFound(err) {
			// Already gone remotely counts as acknowledged.
			return nil
		}
		return err
	})
}

// eventToGoogleEvent maps a declared event onto the wire shape. Date-only
// events become all-day entries with the exclusive end convention.
func eventToGoogleEvent(e event.Event) *gcal.Event {
	payload := &gcal.Event{
		Summary:     e.Name,
		Description: e.Description,
	}

	if e.AllDay() {
		payload.Start = &gcal.EventDateTime{Date: e.BeginDate.Format(time.DateOnly)}
		endDate := e.BeginDate
		if !e.EndDate.IsZero() {
			endDate = e.EndDate
		}
		payload.End = &gcal.EventDateTime{Date: endDate.AddDate(0, 0, 1).Format(time.DateOnly)}
		return payload
	}

	start := e.StartAt(time.UTC)
	end := e.EndAt(time.UTC)
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	payload.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)}
	payload.End = &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)}
	return payload
}
