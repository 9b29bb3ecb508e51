// internal/auth/context.go
//
// Request-context helpers for the signed-in administrator.
//
// Usage
// -----
//     // RequireAdmin attaches the record after the session check.
//     ctx = auth.WithAdmin(ctx, rec)
//
//     // Downstream handlers retrieve it.
//     rec, ok := auth.AdminFrom(ctx)
//
// Notes
// -----
// • Only the public projection is ever stored here.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"

	"github.com/yanizio/eyegonal/internal/admin"
)

// adminKey is unexported to avoid context-key collisions.
type adminKey struct{}

// WithAdmin returns a new context carrying rec.
func WithAdmin(ctx context.Context, rec admin.PublicRecord) context.Context {
	return context.WithValue(ctx, adminKey{}, rec)
}

// AdminFrom extracts the administrator from ctx.  It returns false when
// RequireAdmin has not run or found no session.
func AdminFrom(ctx context.Context) (admin.PublicRecord, bool) {
	rec, ok := ctx.Value(adminKey{}).(admin.PublicRecord)
	return rec, ok
}
