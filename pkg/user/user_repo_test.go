package user

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

func setupTestRepository(t *testing.T) (context.Context, Repo) {
	ctx := context.Background()
	db := openDb()
	repository := NewUserRepo(db)
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, repository
}

func TestRepoImpl_CreateAndGet(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)

	// when
	err := repo.Create(ctx, User{Id: 42, DisplayName: "member", ExternalEmail: "member@example.com"})
	require.NoError(t, err)

	// then
	stored, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.Id)
	assert.Equal(t, "member", stored.DisplayName)
	assert.Equal(t, "member@example.com", stored.ExternalEmail)
	assert.Empty(t, stored.CalendarId)
	assert.Empty(t, stored.AclId)
	assert.WithinDuration(t, time.Now(), stored.CreatedAt, time.Minute)
}

func TestRepoImpl_CreateDuplicateFails(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.Create(ctx, User{Id: 42, DisplayName: "member"}))

	// when
	err := repo.Create(ctx, User{Id: 42, DisplayName: "impostor"})

	// then
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRepoImpl_GetMissingUser(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	_, err := repo.Get(ctx, 999)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepoImpl_List(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.Create(ctx, User{Id: 1, DisplayName: "one"}))
	require.NoError(t, repo.Create(ctx, User{Id: 2, DisplayName: "two"}))

	// when
	users, err := repo.List(ctx)

	// then
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestRepoImpl_SetCalendarIdIsSetOnce(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.Create(ctx, User{Id: 42, DisplayName: "member"}))

	// when
	err := repo.SetCalendarId(ctx, 42, "cal-1")
	require.NoError(t, err)

	// then: storing the same value again is idempotent
	assert.NoError(t, repo.SetCalendarId(ctx, 42, "cal-1"))

	// and: a different value is rejected
	err = repo.SetCalendarId(ctx, 42, "cal-2")
	assert.ErrorIs(t, err, ErrAlreadyProvisioned)

	stored, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "cal-1", stored.CalendarId)
}

func TestRepoImpl_SetCalendarIdMissingUser(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	err := repo.SetCalendarId(ctx, 999, "cal-1")

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepoImpl_SetAndClearAclId(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.Create(ctx, User{Id: 42, DisplayName: "member"}))
	require.NoError(t, repo.SetAclId(ctx, 42, "acl-1"))

	// a different grant id is rejected while one is stored
	assert.ErrorIs(t, repo.SetAclId(ctx, 42, "acl-2"), ErrAlreadyProvisioned)

	// when
	require.NoError(t, repo.ClearAclId(ctx, 42))

	// then: a new grant can be stored after clearing
	assert.NoError(t, repo.SetAclId(ctx, 42, "acl-2"))
	stored, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "acl-2", stored.AclId)
}

func TestRepoImpl_SetExternalEmail(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.Create(ctx, User{Id: 42, DisplayName: "member"}))

	// when
	require.NoError(t, repo.SetExternalEmail(ctx, 42, "new@example.com"))

	// then
	stored, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", stored.ExternalEmail)
}
