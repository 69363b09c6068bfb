//go:build e2e

package pgstore

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
	pgmigrations "github.com/PaulFidika/signuplifecycle/storage/postgres/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		t.Skip("DB_URL not set (skipping postgres e2e)")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`)
	require.NoError(t, err)
	files, err := fs.Glob(pgmigrations.FS, "*.up.sql")
	require.NoError(t, err)
	sort.Strings(files)
	for _, name := range files {
		b, err := pgmigrations.FS.ReadFile(name)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(b))
		require.NoError(t, err, name)
	}
	_, err = pool.Exec(ctx, `TRUNCATE lifecycle.users, lifecycle.sessions, lifecycle.profile_field_data, lifecycle.config_plugins RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return New(pool)
}

func insertUser(t *testing.T, s *Store, u core.UserAccount) int64 {
	t.Helper()
	var created any
	if !u.CreatedAt.IsZero() {
		created = u.CreatedAt
	}
	var id int64
	err := s.Postgres().QueryRow(context.Background(), `INSERT INTO lifecycle.users
		(username, email, auth, created_at, suspended, deleted, is_site_admin, is_guest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		u.Username, u.Email, u.Auth, created, u.Suspended, u.Deleted, u.IsSiteAdmin, u.IsGuest).Scan(&id)
	require.NoError(t, err)
	return id
}

func addSession(t *testing.T, s *Store, userID int64) {
	t.Helper()
	_, err := s.Postgres().Exec(context.Background(), `INSERT INTO lifecycle.sessions (user_id) VALUES ($1)`, userID)
	require.NoError(t, err)
}

func TestStoreProcessLifecycleE2E(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	settings := s.Settings("", time.UTC)
	require.NoError(t, settings.Set(ctx, "coveredauth", "email"))
	require.NoError(t, settings.Set(ctx, "enableuseroverrides", "1"))
	require.NoError(t, settings.Set(ctx, "usersuspensionoverridefield", "11"))

	young := insertUser(t, s, core.UserAccount{Username: "young", Email: "young@example.com", Auth: "email", CreatedAt: now.AddDate(0, 0, -5)})
	due := insertUser(t, s, core.UserAccount{Username: "due", Email: "due@example.com", Auth: "email", CreatedAt: now.AddDate(0, 0, -101)})
	old := insertUser(t, s, core.UserAccount{Username: "old", Email: "old@example.com", Auth: "email", CreatedAt: now.AddDate(0, 0, -201), Suspended: true})
	admin := insertUser(t, s, core.UserAccount{Username: "admin", Auth: "email", CreatedAt: now.AddDate(-3, 0, 0), IsSiteAdmin: true})
	overridden := insertUser(t, s, core.UserAccount{Username: "early", Auth: "email", CreatedAt: now.AddDate(0, 0, -1)})
	_, err := s.Postgres().Exec(ctx, `INSERT INTO lifecycle.profile_field_data (user_id, field_id, data) VALUES ($1, 11, $2)`,
		overridden, strconv.FormatInt(now.Add(-time.Hour).Unix(), 10))
	require.NoError(t, err)
	addSession(t, s, due)
	addSession(t, s, old)

	svc := core.NewService(s, settings).WithProfileFields(s).WithUserLister(s)
	res, err := svc.ProcessLifecycle(ctx)
	require.NoError(t, err)
	require.True(t, res.AllSucceeded)
	require.Equal(t, 2, res.Suspended)
	require.Equal(t, 1, res.Deleted)

	for id, want := range map[int64]bool{young: false, due: true, admin: false, overridden: true} {
		got, err := s.ReadSuspended(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got, "user %d", id)
	}

	var deleted bool
	var email *string
	require.NoError(t, s.Postgres().QueryRow(ctx, `SELECT deleted, email FROM lifecycle.users WHERE id=$1`, old).Scan(&deleted, &email))
	require.True(t, deleted)
	require.Nil(t, email)

	rows, err := s.Postgres().Query(ctx, `SELECT user_id, revoke_reason FROM lifecycle.sessions WHERE revoked_at IS NOT NULL ORDER BY user_id`)
	require.NoError(t, err)
	reasons := map[int64]string{}
	for rows.Next() {
		var id int64
		var reason string
		require.NoError(t, rows.Scan(&id, &reason))
		reasons[id] = reason
	}
	require.NoError(t, rows.Err())
	require.Equal(t, map[int64]string{due: "lifecycle_suspended", old: "lifecycle_deleted"}, reasons)

	again, err := svc.ProcessLifecycle(ctx)
	require.NoError(t, err)
	require.Zero(t, again.Deleted+again.Suspended)

	table, err := svc.UserList(ctx)
	require.NoError(t, err)
	page, err := table.Page(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Contains(t, page.Columns, core.ColumnAccountOverridden)
}

func TestStoreReadSuspendedNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadSuspended(context.Background(), 424242)
	require.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestStoreDeleteUserTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := insertUser(t, s, core.UserAccount{Username: "twice", Auth: "email", CreatedAt: time.Now()})

	ok, err := s.DeleteUser(ctx, core.UserAccount{ID: id})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.DeleteUser(ctx, core.UserAccount{ID: id})
	require.NoError(t, err)
	require.False(t, ok)
}
