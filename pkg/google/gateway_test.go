package google

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/guildbot/guildbot/pkg/event"
)

func TestClassify(t *testing.T) {
	t.Run("deadline exceeded is retryable", func(t *testing.T) {
		remoteErr := classify("upsert event", context.DeadlineExceeded)
		assert.True(t, remoteErr.Retryable)
	})

	t.Run("5xx is retryable", func(t *testing.T) {
		remoteErr := classify("upsert event", &googleapi.Error{Code: 503})
		assert.True(t, remoteErr.Retryable)
	})

	t.Run("rate limit is retryable", func(t *testing.T) {
		remoteErr := classify("upsert event", &googleapi.Error{Code: 429})
		assert.True(t, remoteErr.Retryable)
	})

	t.Run("4xx is not retryable", func(t *testing.T) {
		remoteErr := classify("upsert event", &googleapi.Error{Code: 400})
		assert.False(t, remoteErr.Retryable)
	})

	t.Run("unknown errors are not retryable", func(t *testing.T) {
		remoteErr := classify("upsert event", fmt.Errorf("wire format surprise"))
		assert.False(t, remoteErr.Retryable)
	})

	t.Run("keeps the failed operation name", func(t *testing.T) {
		remoteErr := classify("grant access", &googleapi.Error{Code: 500})
		assert.Equal(t, "grant access", remoteErr.Op)
		assert.ErrorContains(t, remoteErr, "grant access")
	})
}

func TestAuthRejected(t *testing.T) {
	assert.True(t, authRejected(&googleapi.Error{Code: 401}))
	assert.False(t, authRejected(&googleapi.Error{Code: 403}))
	assert.False(t, authRejected(fmt.Errorf("plain error")))
}

func TestNotFound(t *testing.T) {
	assert.True(t, notFound(&googleapi.Error{Code: 404}))
	assert.True(t, notFound(&googleapi.Error{Code: 410}))
	assert.False(t, notFound(&googleapi.Error{Code: 400}))
}

func TestEventToGoogleEvent(t *testing.T) {
	beginDate := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	t.Run("all-day event uses exclusive end date", func(t *testing.T) {
		payload := eventToGoogleEvent(event.Event{
			Name:      "Study Session",
			BeginDate: beginDate,
		})
		assert.Equal(t, "Study Session", payload.Summary)
		assert.Equal(t, "2024-05-01", payload.Start.Date)
		assert.Equal(t, "2024-05-02", payload.End.Date)
		assert.Empty(t, payload.Start.DateTime)
	})

	t.Run("multi-day all-day event ends after the last day", func(t *testing.T) {
		payload := eventToGoogleEvent(event.Event{
			Name:      "Retreat",
			BeginDate: beginDate,
			EndDate:   beginDate.AddDate(0, 0, 2),
		})
		assert.Equal(t, "2024-05-01", payload.Start.Date)
		assert.Equal(t, "2024-05-04", payload.End.Date)
	})

	t.Run("timed event uses RFC3339 instants", func(t *testing.T) {
		payload := eventToGoogleEvent(event.Event{
			Name:      "Raid Night",
			BeginDate: beginDate,
			BeginTime: "20:30:00",
			EndDate:   beginDate,
			EndTime:   "22:00:00",
		})
		assert.Equal(t, "2024-05-01T20:30:00Z", payload.Start.DateTime)
		assert.Equal(t, "2024-05-01T22:00:00Z", payload.End.DateTime)
		assert.Empty(t, payload.Start.Date)
	})

	t.Run("timed event without end gets a default duration", func(t *testing.T) {
		payload := eventToGoogleEvent(event.Event{
			Name:      "Standup",
			BeginDate: beginDate,
			BeginTime: "09:00:00",
		})
		assert.Equal(t, "2024-05-01T09:00:00Z", payload.Start.DateTime)
		assert.Equal(t, "2024-05-01T10:00:00Z", payload.End.DateTime)
	})
}

func TestStubGatewayUpsertIdempotence(t *testing.T) {
	ctx := context.Background()
	gw := NewStubGateway()

	extId, err := gw.UpsertEvent(ctx, "cal-1", "", event.Event{Name: "a"})
	assert.NoError(t, err)
	again, err := gw.UpsertEvent(ctx, "cal-1", extId, event.Event{Name: "b"})
	assert.NoError(t, err)
	assert.Equal(t, extId, again)
	assert.Equal(t, 1, gw.EventCount())
	assert.Equal(t, "b", gw.Events["cal-1"][extId].Name)
}
