package core

import "context"

type lifecycleCtxKey string

const (
	ctxKeySessionRevokeReason lifecycleCtxKey = "signuplifecycle.session_revoke_reason"
	ctxKeyRunID               lifecycleCtxKey = "signuplifecycle.run_id"
)

// WithSessionRevokeReason annotates ctx so stores invalidating sessions can record why.
func WithSessionRevokeReason(ctx context.Context, reason SessionRevokeReason) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if reason == "" {
		return context.WithValue(ctx, ctxKeySessionRevokeReason, nil)
	}
	return context.WithValue(ctx, ctxKeySessionRevokeReason, string(reason))
}

// SessionRevokeReasonFromContext returns the annotated reason, or nil.
func SessionRevokeReasonFromContext(ctx context.Context) *string {
	if ctx == nil {
		return nil
	}
	s, ok := ctx.Value(ctxKeySessionRevokeReason).(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// WithRunID tags ctx with the id of the batch run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// RunIDFromContext returns the run id set by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(ctxKeyRunID).(string)
	return s
}
