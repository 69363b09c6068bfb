package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LifecycleEventKind identifies a lifecycle action that was applied.
type LifecycleEventKind string

const (
	EventUserDeleted   LifecycleEventKind = "user_deleted"
	EventUserSuspended LifecycleEventKind = "user_suspended"
)

// SessionRevokeReason identifies why a user's sessions were invalidated.
type SessionRevokeReason string

const (
	SessionRevokeReasonUnknown            SessionRevokeReason = ""
	SessionRevokeReasonLifecycleSuspended SessionRevokeReason = "lifecycle_suspended"
	SessionRevokeReasonLifecycleDeleted   SessionRevokeReason = "lifecycle_deleted"
)

// LifecycleEvent is a best-effort, append-only audit record intended for external sinks.
//
// Exactly one of PeriodDays (standard period) or Overridden is meaningful.
type LifecycleEvent struct {
	ID         string             `json:"id"`
	OccurredAt time.Time          `json:"occurred_at"`
	Kind       LifecycleEventKind `json:"kind"`
	UserID     int64              `json:"user_id"`
	PeriodDays *int               `json:"period_days,omitempty"`
	Overridden bool               `json:"overridden"`
}

func newLifecycleEvent(kind LifecycleEventKind, userID int64, v Verdict, periodDays int, at time.Time) LifecycleEvent {
	e := LifecycleEvent{
		ID:         uuid.NewString(),
		OccurredAt: at,
		Kind:       kind,
		UserID:     userID,
	}
	if v.Reason == ReasonOverridden {
		e.Overridden = true
	} else {
		p := periodDays
		e.PeriodDays = &p
	}
	return e
}

// Description is the human readable audit line.
func (e LifecycleEvent) Description() string {
	verb := "deleted"
	if e.Kind == EventUserSuspended {
		verb = "suspended"
	}
	if e.Overridden || e.PeriodDays == nil {
		return fmt.Sprintf("The user with id '%d' was %s on the overridden date from their profile.", e.UserID, verb)
	}
	return fmt.Sprintf("The user with id '%d' was %s after %d days.", e.UserID, verb, *e.PeriodDays)
}

// EventSink records lifecycle events. Implementations should be non-blocking and best-effort.
type EventSink interface {
	Emit(ctx context.Context, e LifecycleEvent) error
}

// MultiSink fans events out to several sinks and joins their errors.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, e LifecycleEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	Log *log.Entry
}

func (s LogSink) Emit(ctx context.Context, e LifecycleEvent) error {
	l := s.Log
	if l == nil {
		l = log.WithField("component", "signuplifecycle")
	}
	fields := log.Fields{
		"event_id": e.ID,
		"kind":     string(e.Kind),
		"user_id":  e.UserID,
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		fields["run_id"] = runID
	}
	l.WithContext(ctx).WithFields(fields).Info(e.Description())
	return nil
}
