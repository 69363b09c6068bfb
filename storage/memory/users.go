package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/PaulFidika/signuplifecycle/core"
)

// RevokedSessions records one session invalidation and the reason it carried.
type RevokedSessions struct {
	UserID int64
	Count  int
	Reason string
}

// Users is an in-memory user repository with profile fields and session counts.
// It is only safe for single-process deployments and tests.
type Users struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*core.UserAccount
	fields   map[int64]map[int64]string
	sessions map[int64]int
	revoked  []RevokedSessions

	failDelete    map[int64]bool
	ignoreSuspend map[int64]bool
}

func NewUsers() *Users {
	return &Users{
		users:         make(map[int64]*core.UserAccount),
		fields:        make(map[int64]map[int64]string),
		sessions:      make(map[int64]int),
		failDelete:    make(map[int64]bool),
		ignoreSuspend: make(map[int64]bool),
	}
}

// Add stores u and returns its id. A zero ID gets the next free id.
func (m *Users) Add(u core.UserAccount) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	} else if u.ID > m.nextID {
		m.nextID = u.ID
	}
	cp := u
	m.users[u.ID] = &cp
	return u.ID
}

func (m *Users) Get(id int64) (core.UserAccount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.UserAccount{}, false
	}
	return *u, true
}

// SetField sets a custom profile field value for the user.
func (m *Users) SetField(userID, fieldID int64, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fields[userID] == nil {
		m.fields[userID] = make(map[int64]string)
	}
	m.fields[userID][fieldID] = value
}

func (m *Users) AddSession(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID]++
}

func (m *Users) ActiveSessions(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *Users) Revoked() []RevokedSessions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RevokedSessions(nil), m.revoked...)
}

// FailDeleteFor makes DeleteUser report false for the user.
func (m *Users) FailDeleteFor(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete[userID] = true
}

// IgnoreSuspendFor makes SuspendUser silently leave the flag unset, so verification fails.
func (m *Users) IgnoreSuspendFor(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreSuspend[userID] = true
}

func (m *Users) QueryCandidates(ctx context.Context, f core.CandidateFilter) (core.UserCursor, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.UserAccount
	for _, u := range m.users {
		if u.Deleted || !inSet(u.Auth, f.AuthMethods) {
			continue
		}
		if f.Suspended != nil && u.Suspended != *f.Suspended {
			continue
		}
		if f.CreatedBefore != nil && !u.CreatedAt.Before(*f.CreatedBefore) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &sliceCursor{users: out, pos: -1}, nil
}

func (m *Users) DeleteUser(ctx context.Context, u core.UserAccount) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return false, core.ErrUserNotFound
	}
	if m.failDelete[u.ID] {
		return false, nil
	}
	m.revokeLocked(ctx, u.ID)
	stored.Deleted = true
	delete(m.fields, u.ID)
	return true, nil
}

func (m *Users) SuspendUser(ctx context.Context, u core.UserAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return core.ErrUserNotFound
	}
	m.revokeLocked(ctx, u.ID)
	if !m.ignoreSuspend[u.ID] {
		stored.Suspended = true
	}
	return nil
}

func (m *Users) ReadSuspended(ctx context.Context, userID int64) (bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, core.ErrUserNotFound
	}
	return u.Suspended, nil
}

// ListUsers pages non-deleted, non-protected accounts of the given auth methods by id.
func (m *Users) ListUsers(ctx context.Context, f core.ListFilter) ([]core.UserAccount, int64, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []core.UserAccount
	for _, u := range m.users {
		if u.Deleted || u.Protected() || !inSet(u.Auth, f.AuthMethods) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Offset >= len(all) {
		return []core.UserAccount{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (m *Users) FieldValues(ctx context.Context, userID int64) (map[int64]string, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]string, len(m.fields[userID]))
	for k, v := range m.fields[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *Users) revokeLocked(ctx context.Context, userID int64) {
	n := m.sessions[userID]
	if n == 0 {
		return
	}
	var reason string
	if r := core.SessionRevokeReasonFromContext(ctx); r != nil {
		reason = *r
	}
	m.revoked = append(m.revoked, RevokedSessions{UserID: userID, Count: n, Reason: reason})
	m.sessions[userID] = 0
}

func inSet(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type sliceCursor struct {
	users []core.UserAccount
	pos   int
}

func (c *sliceCursor) Next() bool {
	if c.pos+1 >= len(c.users) {
		c.pos = len(c.users)
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) User() core.UserAccount { return c.users[c.pos] }
func (c *sliceCursor) Err() error             { return nil }
func (c *sliceCursor) Close()                 {}
