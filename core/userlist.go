package core

import (
	"context"
	"errors"
	"math"
	"time"
)

// User list columns, in display order.
const (
	ColumnID                = "id"
	ColumnFirstName         = "firstname"
	ColumnLastName          = "lastname"
	ColumnUsername          = "username"
	ColumnEmail             = "email"
	ColumnAuth              = "auth"
	ColumnTimeCreated       = "timecreated"
	ColumnAccountStatus     = "accountstatus"
	ColumnAccountOverridden = "accountoverridden"
	ColumnNextStep          = "nextstep"
)

// User list paging bounds.
const (
	DefaultUserListPageSize = 50
	MaxUserListPageSize     = 200
)

// UserListRow is one rendered row of the admin user list.
type UserListRow struct {
	ID                int64     `json:"id"`
	FirstName         string    `json:"firstname"`
	LastName          string    `json:"lastname"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Auth              string    `json:"auth"`
	TimeCreated       time.Time `json:"timecreated"`
	AccountStatus     string    `json:"accountstatus"`
	AccountOverridden *string   `json:"accountoverridden,omitempty"`
	NextStep          string    `json:"nextstep"`
}

// UserListPage is a page of rows plus paging metadata.
type UserListPage struct {
	Columns []string      `json:"columns"`
	Rows    []UserListRow `json:"rows"`
	Total   int64         `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// UserListTable renders covered accounts with their status and next step.
// The overridden column is present only when overrides are configured.
// Build one per render; it carries its own RunCache.
type UserListTable struct {
	cfg      Config
	lister   UserLister
	resolver *OverrideResolver
}

func NewUserListTable(cfg Config, lister UserLister, fields ProfileFieldStore) *UserListTable {
	return &UserListTable{cfg: cfg, lister: lister, resolver: NewOverrideResolver(cfg, fields, NewRunCache())}
}

// UserList builds a table from the service's current config.
func (s *Service) UserList(ctx context.Context) (*UserListTable, error) {
	if s.lister == nil {
		return nil, errors.New("signuplifecycle: user lister not configured")
	}
	cfg, err := s.EffectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewUserListTable(cfg, s.lister, s.fields), nil
}

func (t *UserListTable) Columns() []string {
	cols := []string{ColumnID, ColumnFirstName, ColumnLastName, ColumnUsername, ColumnEmail, ColumnAuth, ColumnTimeCreated, ColumnAccountStatus}
	if t.resolver.Configured() {
		cols = append(cols, ColumnAccountOverridden)
	}
	return append(cols, ColumnNextStep)
}

// Page returns rows for 1-based page. Rows whose overrides cannot be read
// show an unknown next step instead of failing the page.
func (t *UserListTable) Page(ctx context.Context, page, pageSize int) (*UserListPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultUserListPageSize
	}
	if pageSize > MaxUserListPageSize {
		pageSize = MaxUserListPageSize
	}
	// Pages past the addressable range still report the total, with no rows.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/pageSize {
		offset = (page - 1) * pageSize
	}
	out := &UserListPage{Columns: t.Columns(), Rows: []UserListRow{}, Limit: pageSize, Offset: offset}
	if len(t.cfg.CoveredAuth) == 0 {
		return out, nil
	}
	users, total, err := t.lister.ListUsers(ctx, ListFilter{AuthMethods: t.cfg.CoveredAuth, Offset: out.Offset, Limit: pageSize})
	if err != nil {
		return nil, err
	}
	out.Total = total
	configured := t.resolver.Configured()
	for _, u := range users {
		row := UserListRow{
			ID:            u.ID,
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Username:      u.Username,
			Email:         u.Email,
			Auth:          u.Auth,
			TimeCreated:   u.CreatedAt,
			AccountStatus: AccountStatus(u),
		}
		o, err := t.resolver.Resolve(ctx, u.ID)
		if err != nil {
			row.NextStep = NextStepInfo{}.String()
		} else {
			row.NextStep = NextStepDescription(u, o, t.cfg, configured)
		}
		if configured {
			v := AccountOverridden(o)
			row.AccountOverridden = &v
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
