// internal/session/session.go
//
// Admin Session Manager.
//
// Context
// -------
// A session is a local copy of a prior successful verification.  It lives
// in exactly one Slot under StorageKey as
//
//	{"adminUser":{"id":…,"email":…,"created_at":…,"last_login":…},
//	 "timestamp":"2024-05-01T09:00:00.000Z"}
//
// and is valid while now - timestamp < Lifetime.  Validity is computed on
// every Current() call; nothing is cached.
//
// Workflow
// --------
//   - Create   overwrites the slot with a fresh blob.
//   - Current  reads, parses, and checks age.  Expired or unreadable blobs
//     are cleared and reported as "no session".
//   - Destroy  clears the slot.  Safe to call repeatedly.
//
// Notes
// -----
// • No network I/O.  Backing stores live in slot.go, bolt.go, and cookie.go.
// • Corruption is never surfaced to callers; it degrades to logged out.
// • Oxford commas, two spaces after periods.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/metrics"
)

const (
	// StorageKey names the slot in every backing store.
	StorageKey = "eyegonal_admin_session"
	// Lifetime is the fixed validity window measured from issue time.
	Lifetime = 24 * time.Hour
)

// blob is the persisted shape.  Timestamp stays a string so blobs written
// by other clients (ISO-8601 with millisecond precision) parse too.
type blob struct {
	AdminUser *admin.PublicRecord `json:"adminUser"`
	Timestamp string              `json:"timestamp"`
}

// Manager issues, reads, and clears the admin session in one Slot.
type Manager struct {
	slot Slot
	now  func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager returns a Manager over slot.
func NewManager(slot Slot, opts ...Option) *Manager {
	m := &Manager{slot: slot, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create stores rec with issue time now, replacing any prior session.
func (m *Manager) Create(rec admin.PublicRecord) error {
	raw, err := json.Marshal(blob{
		AdminUser: &rec,
		Timestamp: m.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.slot.Store(raw); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	metrics.SessionsCreatedTotal.Inc()
	return nil
}

// Current returns the session's admin record when a valid session exists.
func (m *Manager) Current() (admin.PublicRecord, bool) {
	raw, err := m.slot.Load()
	if errors.Is(err, ErrEmpty) {
		metrics.SessionReadsTotal.WithLabelValues(metrics.SessionAbsent).Inc()
		return admin.PublicRecord{}, false
	}
	if err != nil {
		return m.discard(metrics.SessionCorrupt, err)
	}

	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return m.discard(metrics.SessionCorrupt, err)
	}
	if b.AdminUser == nil || b.AdminUser.ID == "" {
		return m.discard(metrics.SessionCorrupt, errors.New("missing adminUser"))
	}
	issued, err := time.Parse(time.RFC3339Nano, b.Timestamp)
	if err != nil {
		return m.discard(metrics.SessionCorrupt, err)
	}
	if m.now().Sub(issued) >= Lifetime {
		return m.discard(metrics.SessionExpired, nil)
	}

	metrics.SessionReadsTotal.WithLabelValues(metrics.SessionValid).Inc()
	return *b.AdminUser, true
}

// Destroy clears the slot.
func (m *Manager) Destroy() {
	if err := m.slot.Clear(); err != nil {
		zap.L().Warn("admin session clear", zap.Error(err))
	}
}

func (m *Manager) discard(result string, cause error) (admin.PublicRecord, bool) {
	metrics.SessionReadsTotal.WithLabelValues(result).Inc()
	if cause != nil {
		zap.L().Debug("admin session discarded", zap.String("result", result), zap.Error(cause))
	}
	m.Destroy()
	return admin.PublicRecord{}, false
}
