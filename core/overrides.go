package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserOverrides are the per-user dates that supersede the standard periods.
type UserOverrides struct {
	DeletionAt   *time.Time
	SuspensionAt *time.Time
}

func (o UserOverrides) Any() bool { return o.DeletionAt != nil || o.SuspensionAt != nil }

// RunCache memoizes derived state for one batch run or one list render.
// Create a fresh one each time; it is not safe for concurrent use.
type RunCache struct {
	configured *bool
	overrides  map[int64]UserOverrides
}

func NewRunCache() *RunCache {
	return &RunCache{overrides: make(map[int64]UserOverrides)}
}

// OverridesConfigured returns the cached predicate, computing it from cfg on first use.
func (c *RunCache) OverridesConfigured(cfg Config) bool {
	if c.configured == nil {
		v := cfg.OverridesEnabledAndConfigured()
		c.configured = &v
	}
	return *c.configured
}

// OverrideResolver turns profile field values into override dates.
type OverrideResolver struct {
	cfg    Config
	fields ProfileFieldStore
	cache  *RunCache
}

func NewOverrideResolver(cfg Config, fields ProfileFieldStore, cache *RunCache) *OverrideResolver {
	if cache == nil {
		cache = NewRunCache()
	}
	return &OverrideResolver{cfg: cfg, fields: fields, cache: cache}
}

func (r *OverrideResolver) Configured() bool {
	return r.fields != nil && r.cache.OverridesConfigured(r.cfg)
}

// Resolve returns the user's override dates. Without configured overrides it
// always returns the empty value. A store error is returned as is; callers must
// not act on the user in that case.
func (r *OverrideResolver) Resolve(ctx context.Context, userID int64) (UserOverrides, error) {
	if !r.Configured() {
		return UserOverrides{}, nil
	}
	if o, ok := r.cache.overrides[userID]; ok {
		return o, nil
	}
	values, err := r.fields.FieldValues(ctx, userID)
	if err != nil {
		return UserOverrides{}, fmt.Errorf("profile fields for user %d: %w", userID, err)
	}
	var o UserOverrides
	if r.cfg.DeletionOverrideField > 0 {
		o.DeletionAt = parseOverride(values[r.cfg.DeletionOverrideField])
	}
	if r.cfg.SuspensionOverrideField > 0 {
		o.SuspensionAt = parseOverride(values[r.cfg.SuspensionOverrideField])
	}
	r.cache.overrides[userID] = o
	return o, nil
}

// parseOverride reads a Unix timestamp; empty, zero and garbage mean no override.
func parseOverride(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	t := time.Unix(n, 0)
	return &t
}
