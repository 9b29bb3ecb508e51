// internal/auth/guard.go
//
// Chi middleware that gates back-office routes on a valid admin session.

package auth

import (
	"net/http"

	"go.uber.org/zap"
)

// Factory builds a per-request consumer, typically over a session.CookieSlot.
type Factory func(w http.ResponseWriter, r *http.Request) *Auth

// RequireAdmin lets the request through only when a valid session exists.
// GET and HEAD are redirected (303) to signInPath; other methods get 401.
func RequireAdmin(newAuth Factory, signInPath string) func(http.Handler) http.Handler {
	if newAuth == nil {
		panic("auth.RequireAdmin: nil factory")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, ok := newAuth(w, r).Admin()
			if !ok {
				zap.L().Debug("admin guard", zap.String("path", r.URL.Path))
				if r.Method == http.MethodGet || r.Method == http.MethodHead {
					http.Redirect(w, r, signInPath, http.StatusSeeOther)
					return
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), rec)))
		})
	}
}
