// cmd/web/main.go
//
// Eyegonal admin authentication service – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Bootstrap console logger, optional Vault client, then configuration
//     (`vault:` values resolved during load).
//
//  2. Daily rotating file logger (tees to console when running in a TTY).
//
//  3. MySQL pool, admin_users migration, and the MySQL admin store.
//
//  4. Credential verifier with per-account limiter, per-IP limiter for the
//     endpoint, and the cookie codec for back-office sessions.
//
//  5. Components initialised and mounted; /metrics and /healthz added.
//
//  6. errgroup runs the HTTP server and the limiter sweeper until SIGINT or
//     SIGTERM, then shuts both down.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/component"
	"github.com/yanizio/eyegonal/internal/config"
	"github.com/yanizio/eyegonal/internal/database"
	"github.com/yanizio/eyegonal/internal/logger"
	"github.com/yanizio/eyegonal/internal/requestinfo"
	"github.com/yanizio/eyegonal/internal/server"
	"github.com/yanizio/eyegonal/internal/session"
	"github.com/yanizio/eyegonal/internal/vault"
	"github.com/yanizio/eyegonal/internal/verifier"

	_ "github.com/yanizio/eyegonal/components/admin"
	_ "github.com/yanizio/eyegonal/components/verify"
)

// sweepEvery is how often idle limiter entries are dropped.
const sweepEvery = time.Minute

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("eyegonal: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot, err := logger.Console("info")
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(boot)

	//
	// ── 1.  Vault + config ──────────────────────────────────────────────
	//
	var secrets vault.Getter
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx)
		if err != nil {
			return err
		}
		secrets = vc
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		return err
	}

	//
	// ── 2.  File logger ─────────────────────────────────────────────────
	//
	logOut, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level, Tee: runningInTTY()})
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	closeGeo, err := requestinfo.OpenGeo(cfg.Geo.DBPath)
	if err != nil {
		logOut.Warnw("geo lookups disabled", "err", err)
		closeGeo = func() error { return nil }
	}
	defer func() { _ = closeGeo() }()

	//
	// ── 3.  Database ────────────────────────────────────────────────────
	//
	db, err := database.Open(ctx, database.WithPassword(cfg.Database.DSN, cfg.Database.Password))
	if err != nil {
		return err
	}
	defer db.Close()
	logOut.Infow("database online")

	if err := component.Migrate(ctx, db); err != nil {
		return err
	}

	//
	// ── 4.  Verifier, limiters, cookies ─────────────────────────────────
	//
	accountLimiter := verifier.NewLimiter(limiterConfig(cfg.Auth.Account))
	ipLimiter := verifier.NewLimiter(limiterConfig(cfg.Auth.IP))

	svc := verifier.New(admin.NewMySQLStore(db),
		verifier.WithLimiter(accountLimiter),
		verifier.WithLastLoginTimeout(cfg.Auth.LastLoginTimeout),
	)

	cookies, err := session.NewCookieCodec([]byte(cfg.Session.SigningKey), cfg.Session.Secure)
	if err != nil {
		return err
	}

	//
	// ── 5.  Components + router ─────────────────────────────────────────
	//
	if err := component.InitAll(component.Deps{
		Config:    cfg,
		Verifier:  svc,
		IPLimiter: ipLimiter,
		Cookies:   cookies,
	}); err != nil {
		return err
	}
	handler := newRouter(cfg, func(ctx context.Context) error { return db.PingContext(ctx) })

	//
	// ── 6.  Run ─────────────────────────────────────────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, server.New(cfg.HTTP.ListenAddr, handler)) })
	g.Go(func() error {
		sweep(gctx, sweepEvery, accountLimiter, ipLimiter)
		return nil
	})

	err = g.Wait()
	logOut.Infow("shutdown complete", "err", err)
	return err
}

func limiterConfig(l config.Limit) verifier.LimiterConfig {
	return verifier.LimiterConfig{
		MaxFailures: l.MaxFailures,
		BaseLockout: l.Lockout,
		MaxLockout:  l.MaxLockout,
		Expiry:      l.Expiry,
		MaxEntries:  l.MaxEntries,
	}
}

// sweep drops expired limiter entries until ctx is done.
func sweep(ctx context.Context, every time.Duration, limiters ...*verifier.Limiter) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, l := range limiters {
				l.Sweep()
			}
		}
	}
}
