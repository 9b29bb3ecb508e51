// internal/verifier/ratelimit.go
//
// Failed sign-in tracking with exponential lockout.
//
// Context
// -------
// The verifier keeps one Limiter keyed by account (SHA-256 of the folded
// email) and the HTTP component keeps one keyed by client IP.  After
// MaxFailures consecutive failures the key is locked for BaseLockout, and
// every further failure doubles the lockout up to MaxLockout.  A success
// clears the key.  Records idle longer than Expiry are forgotten, and at
// most MaxEntries keys are remembered (least recently failed go first).
//
// Notes
// -----
// • Keys are opaque.  Never pass a raw email or password.
// • Oxford commas, two spaces after periods.
package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/cache"
)

// DefaultMaxEntries applies when LimiterConfig.MaxEntries is zero.
const DefaultMaxEntries = 10000

// LimiterConfig tunes a Limiter.  Zero MaxFailures disables limiting.
type LimiterConfig struct {
	MaxFailures int
	BaseLockout time.Duration
	MaxLockout  time.Duration
	Expiry      time.Duration
	MaxEntries  int
}

// DefaultAccountLimits are applied per account.
var DefaultAccountLimits = LimiterConfig{
	MaxFailures: 5,
	BaseLockout: time.Minute,
	MaxLockout:  15 * time.Minute,
	Expiry:      time.Hour,
}

// DefaultIPLimits are applied per client IP.
var DefaultIPLimits = LimiterConfig{
	MaxFailures: 20,
	BaseLockout: time.Minute,
	MaxLockout:  30 * time.Minute,
	Expiry:      time.Hour,
}

type attempt struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	cfg LimiterConfig
	now func() time.Time

	mu       sync.Mutex
	attempts *cache.LRU[string, *attempt]
}

// NewLimiter returns a Limiter using the wall clock.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Limiter{cfg: cfg, now: time.Now, attempts: cache.New[string, *attempt](cfg.MaxEntries)}
}

// Check reports whether key is locked and for how long.
func (l *Limiter) Check(key string) (blocked bool, retryAfter time.Duration) {
	if l == nil || l.cfg.MaxFailures <= 0 || key == "" {
		return false, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.attempts.Get(key)
	if !ok {
		return false, 0
	}
	now := l.now()
	if now.Sub(rec.lastFailure) > l.cfg.Expiry {
		l.attempts.Remove(key)
		return false, 0
	}
	if now.Before(rec.lockedUntil) {
		return true, rec.lockedUntil.Sub(now)
	}
	return false, 0
}

// Failure records one failed attempt against key.
func (l *Limiter) Failure(key string) {
	if l == nil || l.cfg.MaxFailures <= 0 || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.attempts.Get(key)
	if !ok {
		rec = &attempt{}
		l.attempts.Add(key, rec)
	}
	now := l.now()
	rec.failures++
	rec.lastFailure = now

	if rec.failures >= l.cfg.MaxFailures {
		lockout := l.cfg.BaseLockout
		for i := 0; i < rec.failures-l.cfg.MaxFailures; i++ {
			lockout *= 2
			if lockout >= l.cfg.MaxLockout {
				lockout = l.cfg.MaxLockout
				break
			}
		}
		rec.lockedUntil = now.Add(lockout)
	}
}

// Success clears key.
func (l *Limiter) Success(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	l.attempts.Remove(key)
	l.mu.Unlock()
}

// Sweep drops expired records.  cmd/web calls it on a ticker.
func (l *Limiter) Sweep() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.attempts.RemoveFunc(func(_ string, rec *attempt) bool {
		return now.Sub(rec.lastFailure) > l.cfg.Expiry
	})
}

// AccountKey derives the limiter key for an email address.
func AccountKey(email string) string {
	sum := sha256.Sum256([]byte(admin.NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
