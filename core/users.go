package core

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// UserAccount is the slice of a user record the lifecycle policy looks at.
type UserAccount struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	Auth      string
	CreatedAt time.Time

	Suspended   bool
	Deleted     bool
	IsSiteAdmin bool
	IsGuest     bool
}

// HasValidCreatedAt is false for records without a real registration time.
func (u UserAccount) HasValidCreatedAt() bool {
	return !u.CreatedAt.IsZero() && u.CreatedAt.Unix() > 1
}

// Protected accounts are never suspended or deleted.
func (u UserAccount) Protected() bool {
	return u.IsSiteAdmin || u.IsGuest
}

// CandidateFilter selects non-deleted accounts. Zero fields do not filter.
type CandidateFilter struct {
	AuthMethods   []string
	Suspended     *bool
	CreatedBefore *time.Time
}

// UserCursor streams candidates in ascending id order. Close must always be called.
type UserCursor interface {
	Next() bool
	User() UserAccount
	Err() error
	Close()
}

// UserRepository owns user records. Each mutation is atomic for a single user.
type UserRepository interface {
	QueryCandidates(ctx context.Context, f CandidateFilter) (UserCursor, error)
	// DeleteUser reports whether the account was deleted.
	DeleteUser(ctx context.Context, u UserAccount) (bool, error)
	// SuspendUser invalidates the user's sessions, then sets the suspended flag.
	SuspendUser(ctx context.Context, u UserAccount) error
	ReadSuspended(ctx context.Context, userID int64) (bool, error)
}

// ListFilter pages through non-deleted, non-protected accounts for the admin list.
type ListFilter struct {
	AuthMethods []string
	Offset      int
	Limit       int
}

// UserLister backs the admin user list.
type UserLister interface {
	ListUsers(ctx context.Context, f ListFilter) (users []UserAccount, total int64, err error)
}

// ProfileFieldStore exposes custom profile field values keyed by field id.
type ProfileFieldStore interface {
	FieldValues(ctx context.Context, userID int64) (map[int64]string, error)
}

// BoolPtr is a convenience for CandidateFilter.Suspended.
func BoolPtr(v bool) *bool { return &v }
