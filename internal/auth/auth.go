// internal/auth/auth.go
//
// Session Consumer: the sign-in surface the rest of the application uses.
//
// Context
// -------
// Auth composes a Verifier (in-process or remote) with a session.Manager and
// exposes SignIn, SignOut, and Admin.  Every read goes back to the
// Manager, so a session that expired or was cleared elsewhere (another tab,
// another CLI invocation) is observed on the next read and subscribers are
// told about it.
//
// State machine
// -------------
//
//	Authenticating ─first read→ Authenticated | Unauthenticated
//	Unauthenticated ─SignIn ok→ Authenticated
//	Unauthenticated ─SignIn err→ Unauthenticated (error returned)
//	Authenticated ─SignOut→ Unauthenticated
//	Authenticated ─read after expiry→ Expired → Unauthenticated
//
// Notes
// -----
// • SignIn refuses re-entry while a call is in flight.
// • User-facing text comes from Message; lower layers only return sentinels.
// • Oxford commas, two spaces after periods.
package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/session"
	"github.com/yanizio/eyegonal/internal/verifier"
)

// DefaultTimeout bounds one SignIn round-trip.
const DefaultTimeout = 15 * time.Second

// Verifier checks credentials.  verifier.Service and client.Remote both
// satisfy it.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (admin.PublicRecord, error)
}

// State of the consumer.
type State int

const (
	Authenticating State = iota
	Unauthenticated
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	ErrSignInInFlight = errors.New("sign-in already in progress")
	ErrSuperseded     = errors.New("sign-in superseded")
)

// SignInError pairs a display message with its cause.
type SignInError struct {
	Message string
	Err     error
}

func (e *SignInError) Error() string { return e.Message }
func (e *SignInError) Unwrap() error { return e.Err }

// Auth is safe for concurrent use.
type Auth struct {
	verifier Verifier
	sessions *session.Manager
	timeout  time.Duration

	inFlight atomic.Bool

	mu      sync.Mutex
	state   State
	current admin.PublicRecord
	subs    map[int]func(State)
	nextSub int
}

// Option customises Auth.
type Option func(*Auth)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(a *Auth) { a.timeout = d } }

// New returns an Auth in the Authenticating state.  Call Init, or any read,
// to resolve it.
func New(v Verifier, m *session.Manager, opts ...Option) *Auth {
	a := &Auth{
		verifier: v,
		sessions: m,
		timeout:  DefaultTimeout,
		state:    Authenticating,
		subs:     make(map[int]func(State)),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Init performs the first session read and returns the resolved state.
func (a *Auth) Init() State {
	a.refresh()
	return a.State()
}

// Loading reports whether the first session read is still pending.
func (a *Auth) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Authenticating
}

// State returns the last resolved state without touching storage.
func (a *Auth) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Admin re-reads the session and returns the signed-in administrator.
func (a *Auth) Admin() (admin.PublicRecord, bool) {
	return a.refresh()
}

// IsAdmin reports whether a valid session exists right now.
func (a *Auth) IsAdmin() bool {
	_, ok := a.refresh()
	return ok
}

// SignIn verifies credentials and, only on success, creates the session.
// Failures come back as *SignInError carrying a display message.
func (a *Auth) SignIn(ctx context.Context, email, password string) error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return &SignInError{Message: Message(ErrSignInInFlight), Err: ErrSignInInFlight}
	}
	defer a.inFlight.Store(false)

	vctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rec, err := a.verifier.Verify(vctx, email, password)
	if err != nil {
		a.refresh()
		return &SignInError{Message: Message(err), Err: err}
	}
	if ctx.Err() != nil {
		return &SignInError{Message: Message(ErrSuperseded), Err: ErrSuperseded}
	}
	if err := a.sessions.Create(rec); err != nil {
		zap.L().Error("admin session create", zap.Error(err))
		return &SignInError{Message: Message(err), Err: err}
	}
	a.set(Authenticated, rec)
	return nil
}

// SignOut destroys the session.  No network call is made.
func (a *Auth) SignOut() {
	a.sessions.Destroy()
	a.set(Unauthenticated, admin.PublicRecord{})
}

// Subscribe registers fn for state changes and returns its cancel func.
func (a *Auth) Subscribe(fn func(State)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *Auth) refresh() (admin.PublicRecord, bool) {
	rec, ok := a.sessions.Current()
	if ok {
		a.set(Authenticated, rec)
		return rec, true
	}
	if a.State() == Authenticated {
		a.set(Expired, admin.PublicRecord{})
	}
	a.set(Unauthenticated, admin.PublicRecord{})
	return admin.PublicRecord{}, false
}

func (a *Auth) set(s State, rec admin.PublicRecord) {
	a.mu.Lock()
	changed := a.state != s
	a.state, a.current = s, rec
	var fns []func(State)
	if changed {
		fns = make([]func(State), 0, len(a.subs))
		for _, fn := range a.subs {
			fns = append(fns, fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// displayer is satisfied by errors that carry text from the server.
type displayer interface {
	DisplayText() string
}

// Message maps an error from SignIn's collaborators to display text.
// Server-provided text wins over the built-in wording.
func Message(err error) string {
	var d displayer
	if errors.As(err, &d) && d.DisplayText() != "" {
		return d.DisplayText()
	}
	switch {
	case errors.Is(err, verifier.ErrValidation):
		return "Email and password are required."
	case errors.Is(err, verifier.ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, verifier.ErrRateLimited):
		return "Too many failed attempts.  Try again later."
	case errors.Is(err, ErrSignInInFlight):
		return "Sign-in already in progress."
	case errors.Is(err, ErrSuperseded):
		return "Sign-in cancelled."
	default:
		return "Sign-in failed.  Please try again."
	}
}
