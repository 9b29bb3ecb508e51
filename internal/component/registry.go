// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web builds Deps, calls
// InitAll, applies every component's Migrations, and mounts each Routes()
// under its Prefix().

package component

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/config"
	"github.com/yanizio/eyegonal/internal/session"
	"github.com/yanizio/eyegonal/internal/verifier"
)

// Deps are the shared resources handed to components during Init.
type Deps struct {
	Config    *config.Config
	Verifier  *verifier.Service
	IPLimiter *verifier.Limiter
	Cookies   *session.CookieCodec
}

// Component contract.
//
// Migrations() may return nil if the component has no schema.  Routes() is
// mounted under Prefix(), so two components never collide at "/".
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
	Migrations() []string
	Init(Deps) error
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// InitAll calls Init on every component, stopping at the first error.
func InitAll(d Deps) error {
	for _, c := range All() {
		if err := c.Init(d); err != nil {
			return fmt.Errorf("component %s init: %w", c.Name(), err)
		}
	}
	return nil
}

// Migrate runs each component's statements in order.  Statements must be
// idempotent (CREATE TABLE IF NOT EXISTS and the like).
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, c := range All() {
		for i, stmt := range c.Migrations() {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("component %s migration %d: %w", c.Name(), i, err)
			}
		}
		zap.L().Debug("component migrated", zap.String("component", c.Name()))
	}
	return nil
}

// Mount attaches every component's router to r.
func Mount(r chi.Router) {
	for _, c := range All() {
		r.Mount(c.Prefix(), c.Routes())
		zap.L().Info("component mounted", zap.String("component", c.Name()), zap.String("prefix", c.Prefix()))
	}
}
