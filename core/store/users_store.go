package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type UsersStore interface {
	CreateUser(ctx context.Context, user *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListPendingUsers(ctx context.Context) ([]User, error)
	ActivateUser(ctx context.Context, id int64) (*User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error
	CountStaff(ctx context.Context) (int, error)
}

type usersStore struct {
	db *DB
}

func NewUsersStore(db *DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, username, full_name, rank, email, password_hash, is_staff, active, last_login_at, created_at, updated_at`

func (s *usersStore) CreateUser(ctx context.Context, user *User) (int64, error) {
	now := time.Now().UTC()
	var id int64
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO users(username, full_name, rank, email, password_hash, is_staff, active, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?) RETURNING id`,
		strings.TrimSpace(user.Username), strings.TrimSpace(user.FullName), strings.TrimSpace(user.Rank),
		strings.TrimSpace(user.Email), user.PasswordHash, boolToInt(user.IsStaff), boolToInt(user.Active), now, now).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return id, nil
}

func (s *usersStore) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row)
}

func (s *usersStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, strings.TrimSpace(username))
	return scanUser(row)
}

func (s *usersStore) ListUsers(ctx context.Context) ([]User, error) {
	return s.listWhere(ctx, ``)
}

func (s *usersStore) ListPendingUsers(ctx context.Context) ([]User, error) {
	return s.listWhere(ctx, `WHERE active=0`)
}

func (s *usersStore) listWhere(ctx context.Context, where string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users `+where+` ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *usersStore) ActivateUser(ctx context.Context, id int64) (*User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active=1, updated_at=? WHERE id=? AND active=0`, now, id)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrConflict
	}
	return s.GetUser(ctx, id)
}

func (s *usersStore) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, passwordHash, now, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *usersStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=? WHERE id=?`, at, id)
	return err
}

func (s *usersStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		if isFKViolation(err) {
			return ErrReferenced
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *usersStore) CountStaff(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_staff=1`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u, err := scanUserRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUserRows(row rowScanner) (*User, error) {
	var u User
	var isStaff, active int
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Rank, &u.Email, &u.PasswordHash,
		&isStaff, &active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.IsStaff = isStaff == 1
	u.Active = active == 1
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

func isFKViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "violates foreign key")
}
