package core

import "context"

// Provider is the lifecycle surface needed by the built-in HTTP handlers.
// It is implemented by *Service.
type Provider interface {
	// ProcessLifecycle runs one batch over all covered accounts.
	ProcessLifecycle(ctx context.Context) (BatchResult, error)
	// UserList builds the admin user list table from the current policy.
	UserList(ctx context.Context) (*UserListTable, error)
	// EffectiveConfig returns the validated policy the next run would use.
	EffectiveConfig(ctx context.Context) (Config, error)
}

// EventReader lists recently emitted lifecycle events, newest first.
type EventReader interface {
	Recent(ctx context.Context, count int64) ([]LifecycleEvent, error)
}

var _ Provider = (*Service)(nil)
