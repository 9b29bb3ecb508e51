package admin

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by FindByEmail when no row matches.
var ErrNotFound = errors.New("admin not found")

// Store is the slice of the external data layer the verifier consumes.
// Implementations never create or delete administrator rows.
type Store interface {
	// FindByEmail matches email case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Record, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// NormalizeEmail is the canonical match key for an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
