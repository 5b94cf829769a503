package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already registered")

	// ErrAlreadyProvisioned signals a guarded set-once update that found a
	// different value already in place. Benign to the sync engine, which
	// re-reads and uses the stored value.
	ErrAlreadyProvisioned = errors.New("external resource id already set")
)

const pgUniqueViolation = "23505"

type Repo interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
	SetExternalEmail(ctx context.Context, id int64, email string) error
	SetCalendarId(ctx context.Context, id int64, calendarId string) error
	SetAclId(ctx context.Context, id int64, aclId string) error
	ClearAclId(ctx context.Context, id int64) error
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) Create(ctx context.Context, user User) error {
	query := `INSERT INTO users (user_id, display_name, external_email) VALUES ($1, $2, NULLIF($3, ''))`
	_, err := r.db.Exec(ctx, query, user.Id, user.DisplayName, user.ExternalEmail)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUserExists
		}
		log.Errorf("failed to create user %d: %v", user.Id, err)
		return err
	}
	return nil
}

func (r *RepoImpl) Get(ctx context.Context, id int64) (User, error) {
	query := `SELECT user_id, display_name, external_email, external_calendar_id, external_acl_grant_id, created_at
				FROM users WHERE user_id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *RepoImpl) List(ctx context.Context) ([]User, error) {
	query := `SELECT user_id, display_name, external_email, external_calendar_id, external_acl_grant_id, created_at
				FROM users ORDER BY user_id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		log.Errorf("failed to list users: %v", err)
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, 16)
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over users: %v", err)
		return nil, err
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RepoImpl) scanUser(row rowScanner) (User, error) {
	var u User
	var email, calendarId, aclId sql.NullString
	err := row.Scan(&u.Id, &u.DisplayName, &email, &calendarId, &aclId, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to scan user: %v", err)
		return User{}, err
	}
	u.ExternalEmail = email.String
	u.CalendarId = calendarId.String
	u.AclId = aclId.String
	return u, nil
}

func (r *RepoImpl) SetExternalEmail(ctx context.Context, id int64, email string) error {
	query := `UPDATE users SET external_email = $2 WHERE user_id = $1`
	result, err := r.db.Exec(ctx, query, id, email)
	if err != nil {
		log.Errorf("failed to set external email for user %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetCalendarId records the provisioned calendar for a user, at most once.
// Re-setting the same value is a no-op; a different value is rejected with
// ErrAlreadyProvisioned (replace requires explicit revoke-then-reprovision).
func (r *RepoImpl) SetCalendarId(ctx context.Context, id int64, calendarId string) error {
	query := `UPDATE users SET external_calendar_id = $2
				WHERE user_id = $1 AND (external_calendar_id IS NULL OR external_calendar_id = $2)`
	result, err := r.db.Exec(ctx, query, id, calendarId)
	if err != nil {
		log.Errorf("failed to set calendar id for user %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return r.setConflict(ctx, id)
	}
	return nil
}

// SetAclId records the provisioned ACL grant for a user, with the same
// set-at-most-once semantics as SetCalendarId.
func (r *RepoImpl) SetAclId(ctx context.Context, id int64, aclId string) error {
	query := `UPDATE users SET external_acl_grant_id = $2
				WHERE user_id = $1 AND (external_acl_grant_id IS NULL OR external_acl_grant_id = $2)`
	result, err := r.db.Exec(ctx, query, id, aclId)
	if err != nil {
		log.Errorf("failed to set acl id for user %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return r.setConflict(ctx, id)
	}
	return nil
}

func (r *RepoImpl) ClearAclId(ctx context.Context, id int64) error {
	query := `UPDATE users SET external_acl_grant_id = NULL WHERE user_id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		log.Errorf("failed to clear acl id for user %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// setConflict distinguishes "user unknown" from "already provisioned with a
// different id" after a guarded update touched no rows.
func (r *RepoImpl) setConflict(ctx context.Context, id int64) error {
	if _, err := r.Get(ctx, id); errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("failed to inspect conflicting user %d: %w", id, err)
	}
	return ErrAlreadyProvisioned
}
