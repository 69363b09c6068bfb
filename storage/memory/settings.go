package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
)

// Settings is an in-memory key/value settings store for one namespace.
// It implements core.ConfigSource by parsing its current values on every load.
type Settings struct {
	mu       sync.Mutex
	values   map[string]string
	location *time.Location
}

func NewSettings(loc *time.Location) *Settings {
	return &Settings{values: make(map[string]string), location: loc}
}

func (s *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Settings) Del(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *Settings) LoadConfig(ctx context.Context) (core.Config, error) {
	_ = ctx
	s.mu.Lock()
	snapshot := make(map[string]string, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	s.mu.Unlock()
	return core.ParseSettings(snapshot, s.location)
}

// EventLog is an in-memory core.EventSink that keeps every event.
type EventLog struct {
	mu     sync.Mutex
	events []core.LifecycleEvent
}

func NewEventLog() *EventLog { return &EventLog{} }

func (l *EventLog) Emit(ctx context.Context, e core.LifecycleEvent) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *EventLog) Events() []core.LifecycleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.LifecycleEvent(nil), l.events...)
}

// Recent returns up to count of the newest events, newest first.
func (l *EventLog) Recent(ctx context.Context, count int64) ([]core.LifecycleEvent, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.LifecycleEvent, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0 && int64(len(out)) < count; i-- {
		out = append(out, l.events[i])
	}
	return out, nil
}
