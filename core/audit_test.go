package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	got []LifecycleEvent
	err error
}

func (r *recordingSink) Emit(ctx context.Context, e LifecycleEvent) error {
	r.got = append(r.got, e)
	return r.err
}

func TestLifecycleEventDescription(t *testing.T) {
	at := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	e := newLifecycleEvent(EventUserDeleted, 7, Verdict{ActionDelete, ReasonStandardPeriod}, 200, at)
	require.NotEmpty(t, e.ID)
	require.Equal(t, at, e.OccurredAt)
	require.Equal(t, "The user with id '7' was deleted after 200 days.", e.Description())

	e = newLifecycleEvent(EventUserSuspended, 8, Verdict{ActionSuspend, ReasonOverridden}, 100, at)
	require.Nil(t, e.PeriodDays)
	require.True(t, e.Overridden)
	require.Equal(t, "The user with id '8' was suspended on the overridden date from their profile.", e.Description())
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("down")}
	sink := MultiSink{a, nil, b}

	err := sink.Emit(context.Background(), LifecycleEvent{UserID: 1})
	require.ErrorContains(t, err, "down")
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
}

func TestLogSink(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	sink := LogSink{Log: logrus.NewEntry(logger)}
	days := 200
	ctx := WithRunID(context.Background(), "run-1")

	require.NoError(t, sink.Emit(ctx, LifecycleEvent{ID: "e1", Kind: EventUserDeleted, UserID: 3, PeriodDays: &days}))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "The user with id '3' was deleted after 200 days.", entry.Message)
	require.Equal(t, "run-1", entry.Data["run_id"])
	require.Equal(t, "user_deleted", entry.Data["kind"])
}

func TestSessionRevokeReasonContext(t *testing.T) {
	require.Nil(t, SessionRevokeReasonFromContext(context.Background()))
	ctx := WithSessionRevokeReason(context.Background(), SessionRevokeReasonLifecycleSuspended)
	got := SessionRevokeReasonFromContext(ctx)
	require.NotNil(t, got)
	require.Equal(t, "lifecycle_suspended", *got)
}
