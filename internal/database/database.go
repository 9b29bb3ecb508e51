// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                 – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, o)   – fine-grained control.
//
// Both helpers ping before returning so callers fail fast during boot.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Options tunes the pool.
type Options struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	PingTimeout time.Duration
}

// DefaultOptions: 15 open, 5 idle, 30-minute lifetime, 5 s ping.
var DefaultOptions = Options{
	MaxOpen:     15,
	MaxIdle:     5,
	MaxLifetime: 30 * time.Minute,
	PingTimeout: 5 * time.Second,
}

// Open returns a pool with DefaultOptions.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, DefaultOptions)
}

// OpenWithOptions opens and pings a pool.
func OpenWithOptions(ctx context.Context, dsn string, o Options) (*sqlx.DB, error) {
	cfg, err := driverConfig(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(o.MaxOpen)
	db.SetMaxIdleConns(o.MaxIdle)
	db.SetConnMaxLifetime(o.MaxLifetime)

	pctx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}
	return db, nil
}

// driverConfig parses dsn and forces the flags the stores rely on.
func driverConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// admin_users timestamps are DATETIME; scan them as time.Time in UTC.
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// RowsAffected must count matched rows, or an UPDATE writing the value
	// already stored reads as "no such row".
	cfg.ClientFoundRows = true
	return cfg, nil
}

// WithPassword fills a `%s` placeholder in a DSN template.  The template lives
// in YAML; the password comes from Vault or the environment.
func WithPassword(template, password string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, password)
}
