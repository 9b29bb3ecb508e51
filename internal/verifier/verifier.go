// internal/verifier/verifier.go
//
// Credential Verifier.
//
// Context
// -------
// Verify is the only place in the system where a plaintext password meets a
// stored hash.  It runs server-side behind components/verify; clients reach
// it over HTTP and receive either a PublicRecord or one of the sentinel
// errors in errors.go.
//
// Workflow
// --------
//  1. Reject blank input with ErrValidation.
//  2. Refuse locked-out accounts with *RateLimitError.
//  3. Look up the row.  A miss still pays for one bcrypt comparison against
//     a throwaway hash.
//  4. Compare with bcrypt.  Any failure, including lookup errors and
//     malformed stored hashes, collapses to ErrInvalidCredentials.
//  5. On success stamp last_login (bounded, best-effort) and return the
//     projection carrying the new timestamp.
//
// Notes
// -----
// • The internal failure reason is logged, never returned.
// • No password, hash, or raw email is written to logs.
// • Oxford commas, two spaces after periods.
package verifier

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/metrics"
)

// DefaultLastLoginTimeout bounds the best-effort last_login write.
const DefaultLastLoginTimeout = 3 * time.Second

// Service verifies administrator credentials against a Store.
type Service struct {
	store            admin.Store
	limiter          *Limiter
	now              func() time.Time
	lastLoginTimeout time.Duration
	dummyCost        int
	log              *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLimiter installs a per-account limiter.  nil disables limiting.
func WithLimiter(l *Limiter) Option { return func(s *Service) { s.limiter = l } }

// WithLastLoginTimeout bounds the last_login update.
func WithLastLoginTimeout(d time.Duration) Option {
	return func(s *Service) { s.lastLoginTimeout = d }
}

// WithDummyCost sets the bcrypt cost of the throwaway hash.  It should match
// the cost used when provisioning real rows.
func WithDummyCost(cost int) Option { return func(s *Service) { s.dummyCost = cost } }

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// New returns a Service backed by store.
func New(store admin.Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		limiter:          NewLimiter(DefaultAccountLimits),
		now:              time.Now,
		lastLoginTimeout: DefaultLastLoginTimeout,
		dummyCost:        bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.L()
	}
	return s
}

// Verify checks email and password and returns the public projection of the
// matching administrator.
func (s *Service) Verify(ctx context.Context, email, password string) (admin.PublicRecord, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		metrics.VerifyTotal.WithLabelValues(metrics.OutcomeValidation).Inc()
		return admin.PublicRecord{}, ErrValidation
	}

	key := AccountKey(email)
	if blocked, retry := s.limiter.Check(key); blocked {
		metrics.VerifyTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		s.log.Info("admin sign-in refused", zap.String("account", key[:12]),
			zap.String("reason", "locked out"), zap.Duration("retry_after", retry))
		return admin.PublicRecord{}, &RateLimitError{RetryAfter: retry}
	}

	rec, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		reason := "unknown email"
		if !errors.Is(err, admin.ErrNotFound) {
			reason = "lookup failed"
			s.log.Error("admin lookup", zap.Error(err))
		}
		s.compare(s.dummy(), password)
		return admin.PublicRecord{}, s.fail(key, reason)
	}

	if err := s.compare([]byte(rec.PasswordHash), password); err != nil {
		reason := "wrong password"
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			reason = "malformed stored hash"
			s.log.Error("admin hash compare", zap.String("admin_id", rec.ID), zap.Error(err))
		}
		return admin.PublicRecord{}, s.fail(key, reason)
	}

	s.limiter.Success(key)

	now := s.now().UTC()
	s.touchLastLogin(ctx, rec.ID, now)

	pub := rec.Public()
	pub.LastLogin = &now

	metrics.VerifyTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("admin sign-in", zap.String("admin_id", rec.ID))
	return pub, nil
}

func (s *Service) fail(key, reason string) error {
	s.limiter.Failure(key)
	metrics.VerifyTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
	s.log.Info("admin sign-in rejected", zap.String("account", key[:12]), zap.String("reason", reason))
	return ErrInvalidCredentials
}

func (s *Service) compare(hash []byte, password string) error {
	start := time.Now()
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	metrics.VerifyHashSeconds.Observe(time.Since(start).Seconds())
	return err
}

// touchLastLogin writes last_login on a context detached from the caller's
// cancellation and bounded by lastLoginTimeout.  Errors are logged only.
func (s *Service) touchLastLogin(ctx context.Context, id string, at time.Time) {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lastLoginTimeout)
	defer cancel()
	if err := s.store.UpdateLastLogin(uctx, id, at); err != nil {
		metrics.LastLoginErrorsTotal.Inc()
		s.log.Warn("admin last_login update", zap.String("admin_id", id), zap.Error(err))
	}
}

// dummy returns a hash of random bytes, computed once.
func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		pw := make([]byte, 32)
		_, _ = rand.Read(pw)
		h, err := bcrypt.GenerateFromPassword(pw, s.dummyCost)
		if err != nil {
			h = []byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinv")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
