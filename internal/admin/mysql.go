// internal/admin/mysql.go
//
// sqlx-backed Store for the `admin_users` table.
//
// Notes
// -----
// • Email comparison folds case on both sides so legacy rows stored with
//   mixed case still match.  The UNIQUE index should be declared on a
//   case-insensitive collation (MySQL default utf8mb4_0900_ai_ci).
// • Callers supply a context so lookups respect request deadlines.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Schema creates the table when missing.  Rows are provisioned out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS admin_users (
    id            CHAR(36)     NOT NULL PRIMARY KEY,
    email         VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    last_login    DATETIME(6)  NULL,
    UNIQUE KEY uq_admin_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_0900_ai_ci`

// MySQLStore implements Store against MySQL / MariaDB.
type MySQLStore struct {
	db *sqlx.DB
}

var _ Store = (*MySQLStore)(nil)

// NewMySQLStore wraps an open pool.
func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// FindByEmail fetches a single admin row or ErrNotFound.
func (s *MySQLStore) FindByEmail(ctx context.Context, email string) (*Record, error) {
	const q = `
        SELECT id, email, password_hash, created_at, last_login
        FROM   admin_users
        WHERE  LOWER(email) = ?
        LIMIT  1`

	var rec Record
	if err := s.db.GetContext(ctx, &rec, q, NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("admin by email: %w", err)
	}
	return &rec, nil
}

// UpdateLastLogin stamps last_login for one row.  The pool must be opened
// with clientFoundRows (database.Open does this) so that rewriting an
// unchanged timestamp still counts the row.
func (s *MySQLStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE admin_users SET last_login = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
