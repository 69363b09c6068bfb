package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream lifecycle events are appended to.
const DefaultStream = "signuplifecycle:events"

// EventStream appends lifecycle events to a capped Redis stream.
type EventStream struct {
	rdb     *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
}

func NewEventStream(rdb *redis.Client, stream string) *EventStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &EventStream{rdb: rdb, stream: stream, maxLen: 100_000, timeout: 2 * time.Second}
}

// WithMaxLen caps the stream length (approximate trimming). 0 disables trimming.
func (s *EventStream) WithMaxLen(n int64) *EventStream { s.maxLen = n; return s }

func (s *EventStream) Emit(ctx context.Context, e core.LifecycleEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"kind":        string(e.Kind),
			"user_id":     strconv.FormatInt(e.UserID, 10),
			"description": e.Description(),
			"payload":     payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.rdb.XAdd(ctx, args).Err()
}

// Recent returns up to count of the newest events, newest first.
func (s *EventStream) Recent(ctx context.Context, count int64) ([]core.LifecycleEvent, error) {
	msgs, err := s.rdb.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.LifecycleEvent, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		var e core.LifecycleEvent
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
