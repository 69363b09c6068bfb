package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, cur core.UserCursor) []int64 {
	t.Helper()
	defer cur.Close()
	var ids []int64
	for cur.Next() {
		ids = append(ids, cur.User().ID)
	}
	require.NoError(t, cur.Err())
	return ids
}

func TestQueryCandidates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	m := NewUsers()
	m.Add(core.UserAccount{ID: 5, Auth: "email", CreatedAt: now.AddDate(0, 0, -10)})
	m.Add(core.UserAccount{ID: 2, Auth: "email", CreatedAt: now.AddDate(0, 0, -300), Suspended: true})
	m.Add(core.UserAccount{ID: 9, Auth: "email", CreatedAt: now.AddDate(0, 0, -300), Deleted: true})
	m.Add(core.UserAccount{ID: 3, Auth: "oauth2", CreatedAt: now.AddDate(0, 0, -300)})
	require.EqualValues(t, 10, m.Add(core.UserAccount{Auth: "email"}))

	cur, err := m.QueryCandidates(ctx, core.CandidateFilter{AuthMethods: []string{"email"}})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 5, 10}, collect(t, cur))

	cutoff := now.AddDate(0, 0, -100)
	cur, err = m.QueryCandidates(ctx, core.CandidateFilter{AuthMethods: []string{"email", "oauth2"}, CreatedBefore: &cutoff, Suspended: core.BoolPtr(false)})
	require.NoError(t, err)
	require.Equal(t, []int64{3, 10}, collect(t, cur))
}

func TestDeleteAndSuspend(t *testing.T) {
	ctx := context.Background()
	m := NewUsers()
	m.Add(core.UserAccount{ID: 1, Auth: "email"})
	m.Add(core.UserAccount{ID: 2, Auth: "email"})
	m.SetField(1, 10, "123")
	m.AddSession(1)
	m.AddSession(2)

	ok, err := m.DeleteUser(core.WithSessionRevokeReason(ctx, core.SessionRevokeReasonLifecycleDeleted), core.UserAccount{ID: 1})
	require.NoError(t, err)
	require.True(t, ok)
	u, _ := m.Get(1)
	require.True(t, u.Deleted)
	fields, err := m.FieldValues(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, fields)

	require.NoError(t, m.SuspendUser(ctx, core.UserAccount{ID: 2}))
	suspended, err := m.ReadSuspended(ctx, 2)
	require.NoError(t, err)
	require.True(t, suspended)

	require.Equal(t, []RevokedSessions{
		{UserID: 1, Count: 1, Reason: "lifecycle_deleted"},
		{UserID: 2, Count: 1, Reason: ""},
	}, m.Revoked())

	_, err = m.DeleteUser(ctx, core.UserAccount{ID: 99})
	require.ErrorIs(t, err, core.ErrUserNotFound)
	_, err = m.ReadSuspended(ctx, 99)
	require.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewUsers()
	m.Add(core.UserAccount{ID: 1})
	m.Add(core.UserAccount{ID: 2})
	m.FailDeleteFor(1)
	m.IgnoreSuspendFor(2)

	ok, err := m.DeleteUser(ctx, core.UserAccount{ID: 1})
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.SuspendUser(ctx, core.UserAccount{ID: 2}))
	suspended, err := m.ReadSuspended(ctx, 2)
	require.NoError(t, err)
	require.False(t, suspended)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	m := NewUsers()
	for i := int64(1); i <= 5; i++ {
		m.Add(core.UserAccount{ID: i, Auth: "email"})
	}
	m.Add(core.UserAccount{ID: 6, Auth: "email", IsGuest: true})
	m.Add(core.UserAccount{ID: 7, Auth: "email", Deleted: true})

	users, total, err := m.ListUsers(ctx, core.ListFilter{AuthMethods: []string{"email"}, Offset: 3, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, users, 2)
	require.EqualValues(t, 4, users[0].ID)

	users, _, err = m.ListUsers(ctx, core.ListFilter{AuthMethods: []string{"email"}, Offset: 50})
	require.NoError(t, err)
	require.Empty(t, users)

	users, _, err = m.ListUsers(ctx, core.ListFilter{AuthMethods: []string{"email"}, Offset: -7, Limit: 2})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.EqualValues(t, 1, users[0].ID)
}
