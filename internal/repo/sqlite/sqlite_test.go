package sqlite_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/geocoder89/tasklist/internal/auth"
	"github.com/geocoder89/tasklist/internal/db"
	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/geocoder89/tasklist/internal/repo/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ user.Repository = (*sqlite.UsersRepo)(nil)
	_ task.Repository = (*sqlite.TasksRepo)(nil)

	_ auth.RevocationList = (*sqlite.RevokedTokensRepo)(nil)
)

func setup(t *testing.T) (*sqlite.UsersRepo, *sqlite.TasksRepo) {
	t.Helper()

	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "tasklist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, db.MigrateSQLite(context.Background(), sqlDB, log))
	// second run is a no-op
	require.NoError(t, db.MigrateSQLite(context.Background(), sqlDB, log))

	return sqlite.NewUsersRepo(sqlDB, nil), sqlite.NewTasksRepo(sqlDB, nil)
}

func TestUsersRepo(t *testing.T) {
	users, _ := setup(t)
	ctx := context.Background()

	u, err := users.Create(ctx, user.New("demo@example.com", "hash", "Demo User"))
	require.NoError(t, err)

	_, err = users.Create(ctx, user.New("demo@example.com", "hash2", ""))
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := users.GetByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "Demo User", got.DisplayName)

	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", got.Email)

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestTasksRepo(t *testing.T) {
	users, tasks := setup(t)
	ctx := context.Background()

	alice, err := users.Create(ctx, user.New("alice@example.com", "h", "Alice"))
	require.NoError(t, err)
	eve, err := users.Create(ctx, user.New("eve@example.com", "h", "Eve"))
	require.NoError(t, err)

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		created, err := tasks.Insert(ctx, task.New(alice.ID, text))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	_, err = tasks.Insert(ctx, task.Task{ID: ids[0], OwnerID: alice.ID, Text: "dup"})
	assert.ErrorIs(t, err, task.ErrDuplicateID)

	list, err := tasks.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{list[0].Text, list[1].Text, list[2].Text})

	// eve cannot see or touch alice's rows
	empty, err := tasks.ListByOwner(ctx, eve.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = tasks.UpdateText(ctx, eve.ID, ids[0], "mine now")
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = tasks.Delete(ctx, eve.ID, ids[0])
	assert.ErrorIs(t, err, task.ErrNotFound)

	updated, err := tasks.UpdateText(ctx, alice.ID, ids[1], "two!")
	require.NoError(t, err)
	assert.Equal(t, "two!", updated.Text)

	deleted, err := tasks.Delete(ctx, alice.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "one", deleted.Text)

	list, err = tasks.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID)
	assert.Equal(t, ids[2], list[1].ID)
}

func TestRevokedTokensRepo_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasklist.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	open := func() *sqlite.RevokedTokensRepo {
		sqlDB, err := db.OpenSQLite(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })

		require.NoError(t, db.MigrateSQLite(ctx, sqlDB, log))
		return sqlite.NewRevokedTokensRepo(sqlDB, nil)
	}

	first := open()

	require.NoError(t, first.Revoke(ctx, "live", time.Now().Add(time.Hour)))
	require.NoError(t, first.Revoke(ctx, "stale", time.Now().Add(-time.Hour)))
	// revoking twice is fine
	require.NoError(t, first.Revoke(ctx, "live", time.Now().Add(time.Hour)))

	second := open()

	revoked, err := second.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = second.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = second.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := second.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
