package sync

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/guildbot/guildbot/internal/test_utils"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	defer func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			log.Errorf("failed to terminate container: %s", err)
		}
	}()
	code := m.Run()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *pgxpool.Pool, RecordRepository) {
	ctx := context.Background()
	db := openDb()
	repository := NewRecordRepository(db)
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, db, repository
}

func createTestUser(t *testing.T, ctx context.Context, db *pgxpool.Pool, userId int64) {
	t.Helper()
	_, err := db.Exec(ctx, "INSERT INTO users (user_id, display_name) VALUES ($1, 'member')", userId)
	require.NoError(t, err)
}

func createTestEvent(t *testing.T, ctx context.Context, db *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(ctx,
		"INSERT INTO events (channel_id, name, begin_date) VALUES (1, 'raid night', '2024-06-01') RETURNING id",
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestRecordRepositoryImpl_InsertAndFind(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)
	eventId := createTestEvent(t, ctx, db)
	syncedAt := time.Now().UTC().Truncate(time.Microsecond)

	// when
	err := repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: eventId, SyncedAt: syncedAt})
	require.NoError(t, err)

	// then
	record, err := repo.Find(ctx, 7, eventId)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", record.ExternalEventId)
	assert.Equal(t, int64(7), record.UserId)
	assert.Equal(t, eventId, record.EventId)
	assert.WithinDuration(t, syncedAt, record.SyncedAt, time.Millisecond)
}

func TestRecordRepositoryImpl_FindMissing(t *testing.T) {
	ctx, _, repo := setupTestRepository(t)

	_, err := repo.Find(ctx, 7, 999)

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordRepositoryImpl_InsertDuplicateUserEventPair(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)
	eventId := createTestEvent(t, ctx, db)
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: eventId, SyncedAt: time.Now()}))

	// when: same (user, event) with a different external id
	err := repo.Insert(ctx, Record{ExternalEventId: "ext-2", UserId: 7, EventId: eventId, SyncedAt: time.Now()})

	// then
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestRecordRepositoryImpl_InsertDuplicateExternalId(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)
	first := createTestEvent(t, ctx, db)
	second := createTestEvent(t, ctx, db)
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: first, SyncedAt: time.Now()}))

	// when: same external id for the same user
	err := repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: second, SyncedAt: time.Now()})

	// then
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestRecordRepositoryImpl_TouchAdvancesButNeverRegresses(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)
	eventId := createTestEvent(t, ctx, db)
	base := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: eventId, SyncedAt: base}))

	// when: a newer timestamp advances synced_at
	require.NoError(t, repo.Touch(ctx, 7, eventId, "ext-1", base.Add(time.Hour)))
	record, err := repo.Find(ctx, 7, eventId)
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(time.Hour), record.SyncedAt, time.Millisecond)

	// and: an older timestamp is ignored
	require.NoError(t, repo.Touch(ctx, 7, eventId, "ext-1", base.Add(-time.Hour)))
	record, err = repo.Find(ctx, 7, eventId)
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(time.Hour), record.SyncedAt, time.Millisecond)
}

func TestRecordRepositoryImpl_TouchMissingRecord(t *testing.T) {
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)

	err := repo.Touch(ctx, 7, 999, "ext-1", time.Now())

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordRepositoryImpl_Delete(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)
	eventId := createTestEvent(t, ctx, db)
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: eventId, SyncedAt: time.Now()}))

	// when
	require.NoError(t, repo.Delete(ctx, "ext-1", 7))

	// then
	_, err := repo.Find(ctx, 7, eventId)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "ext-1", 7), ErrRecordNotFound)
}

func TestRecordRepositoryImpl_ListForEvent(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 1)
	createTestUser(t, ctx, db, 2)
	eventId := createTestEvent(t, ctx, db)
	other := createTestEvent(t, ctx, db)
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 1, EventId: eventId, SyncedAt: time.Now()}))
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-2", UserId: 2, EventId: eventId, SyncedAt: time.Now()}))
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-3", UserId: 1, EventId: other, SyncedAt: time.Now()}))

	// when
	records, err := repo.ListForEvent(ctx, eventId)

	// then
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecordRepositoryImpl_RecordsSurviveEventRowDeletion(t *testing.T) {
	// given
	ctx, db, repo := setupTestRepository(t)
	createTestUser(t, ctx, db, 7)
	kept := createTestEvent(t, ctx, db)
	removed := createTestEvent(t, ctx, db)
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-1", UserId: 7, EventId: kept, SyncedAt: time.Now()}))
	require.NoError(t, repo.Insert(ctx, Record{ExternalEventId: "ext-2", UserId: 7, EventId: removed, SyncedAt: time.Now()}))

	// when: deleting the event row leaves the record as an owed remote delete
	_, err := db.Exec(ctx, "DELETE FROM events WHERE id = $1", removed)
	require.NoError(t, err)

	// then
	orphans, err := repo.ListOrphaned(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "ext-2", orphans[0].ExternalEventId)

	record, err := repo.Find(ctx, 7, removed)
	require.NoError(t, err)
	assert.Equal(t, "ext-2", record.ExternalEventId)
}
