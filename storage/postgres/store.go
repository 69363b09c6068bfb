package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the lifecycle repositories on the lifecycle.* schema.
type Store struct {
	pg *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pg: pool} }

func (s *Store) Postgres() *pgxpool.Pool { return s.pg }

const userCols = `id, username, COALESCE(email, ''), firstname, lastname, auth, created_at, suspended, deleted, is_site_admin, is_guest`

func scanUser(row pgx.Row) (core.UserAccount, error) {
	var u core.UserAccount
	var created *time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Auth, &created, &u.Suspended, &u.Deleted, &u.IsSiteAdmin, &u.IsGuest); err != nil {
		return core.UserAccount{}, err
	}
	if created != nil {
		u.CreatedAt = *created
	}
	return u, nil
}

// QueryCandidates streams non-deleted accounts matching f in ascending id order.
func (s *Store) QueryCandidates(ctx context.Context, f core.CandidateFilter) (core.UserCursor, error) {
	if s.pg == nil {
		return nil, errors.New("postgres not configured")
	}
	where := []string{"deleted = false", "auth = ANY($1)"}
	args := []any{f.AuthMethods}
	if f.Suspended != nil {
		args = append(args, *f.Suspended)
		where = append(where, fmt.Sprintf("suspended = $%d", len(args)))
	}
	if f.CreatedBefore != nil {
		args = append(args, *f.CreatedBefore)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	q := "SELECT " + userCols + " FROM lifecycle.users WHERE " + strings.Join(where, " AND ") + " ORDER BY id ASC"
	rows, err := s.pg.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &rowsCursor{rows: rows}, nil
}

// DeleteUser soft-deletes the account: sessions and profile data are dropped,
// identifying columns are scrubbed and the row is flagged deleted.
func (s *Store) DeleteUser(ctx context.Context, u core.UserAccount) (bool, error) {
	if s.pg == nil {
		return false, errors.New("postgres not configured")
	}
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := revokeSessions(ctx, tx, u.ID); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM lifecycle.profile_field_data WHERE user_id=$1`, u.ID); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `UPDATE lifecycle.users
		SET deleted=true, username=username || '.deleted.' || id::text, email=NULL, updated_at=now()
		WHERE id=$1 AND deleted=false`, u.ID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// SuspendUser revokes the user's sessions and sets the suspended flag in one transaction.
func (s *Store) SuspendUser(ctx context.Context, u core.UserAccount) error {
	if s.pg == nil {
		return errors.New("postgres not configured")
	}
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := revokeSessions(ctx, tx, u.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE lifecycle.users SET suspended=true, updated_at=now() WHERE id=$1 AND deleted=false`, u.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ReadSuspended(ctx context.Context, userID int64) (bool, error) {
	if s.pg == nil {
		return false, errors.New("postgres not configured")
	}
	var suspended bool
	err := s.pg.QueryRow(ctx, `SELECT suspended FROM lifecycle.users WHERE id=$1`, userID).Scan(&suspended)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, core.ErrUserNotFound
	}
	return suspended, err
}

func revokeSessions(ctx context.Context, tx pgx.Tx, userID int64) error {
	reason := core.SessionRevokeReasonFromContext(ctx)
	_, err := tx.Exec(ctx, `UPDATE lifecycle.sessions SET revoked_at=now(), revoke_reason=$2
		WHERE user_id=$1 AND revoked_at IS NULL`, userID, reason)
	return err
}

// ListUsers pages non-deleted accounts of the given auth methods, excluding admins and guests.
func (s *Store) ListUsers(ctx context.Context, f core.ListFilter) ([]core.UserAccount, int64, error) {
	if s.pg == nil {
		return []core.UserAccount{}, 0, nil
	}
	const where = `deleted = false AND is_site_admin = false AND is_guest = false AND auth = ANY($1)`
	var total int64
	if err := s.pg.QueryRow(ctx, `SELECT COUNT(*) FROM lifecycle.users WHERE `+where, f.AuthMethods).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pg.Query(ctx, `SELECT `+userCols+` FROM lifecycle.users WHERE `+where+` ORDER BY id ASC OFFSET $2 LIMIT $3`, f.AuthMethods, f.Offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []core.UserAccount{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// FieldValues returns the user's custom profile field values by field id.
func (s *Store) FieldValues(ctx context.Context, userID int64) (map[int64]string, error) {
	if s.pg == nil {
		return nil, nil
	}
	rows, err := s.pg.Query(ctx, `SELECT field_id, data FROM lifecycle.profile_field_data WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]string{}
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, rows.Err()
}

type rowsCursor struct {
	rows pgx.Rows
	cur  core.UserAccount
	err  error
}

func (c *rowsCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	u, err := scanUser(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = u
	return true
}

func (c *rowsCursor) User() core.UserAccount { return c.cur }

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() { c.rows.Close() }
