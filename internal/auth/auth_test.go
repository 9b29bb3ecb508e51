package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/session"
	"github.com/yanizio/eyegonal/internal/verifier"
)

type stubVerifier struct {
	rec   admin.PublicRecord
	err   error
	calls int
	block chan struct{}
}

func (s *stubVerifier) Verify(ctx context.Context, _, _ string) (admin.PublicRecord, error) {
	s.calls++
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return admin.PublicRecord{}, ctx.Err()
		}
	}
	return s.rec, s.err
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func sample() admin.PublicRecord {
	return admin.PublicRecord{
		ID:        "a1",
		Email:     "owner@eyegonal.com",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newAuth(v Verifier) (*Auth, *session.MemorySlot, *clock) {
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	slot := &session.MemorySlot{}
	m := session.NewManager(slot, session.WithClock(c.Now))
	return New(v, m), slot, c
}

func TestInitResolvesLoading(t *testing.T) {
	a, _, _ := newAuth(&stubVerifier{})
	assert.True(t, a.Loading())
	assert.Equal(t, Authenticating, a.State())

	assert.Equal(t, Unauthenticated, a.Init())
	assert.False(t, a.Loading())
	assert.False(t, a.IsAdmin())
}

func TestSignInCreatesSession(t *testing.T) {
	v := &stubVerifier{rec: sample()}
	a, slot, _ := newAuth(v)
	a.Init()

	require.NoError(t, a.SignIn(context.Background(), "owner@eyegonal.com", "pw"))
	assert.Equal(t, Authenticated, a.State())

	got, ok := a.Admin()
	require.True(t, ok)
	assert.Equal(t, "a1", got.ID)

	raw, err := slot.Load()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"adminUser"`)
}

type serverError struct{ text string }

func (e serverError) Error() string       { return "status 401" }
func (e serverError) DisplayText() string { return e.text }
func (e serverError) Unwrap() error       { return verifier.ErrInvalidCredentials }

func TestMessagePrefersServerText(t *testing.T) {
	assert.Equal(t, "account disabled", Message(serverError{text: "account disabled"}))
	assert.Equal(t, "Invalid credentials.", Message(serverError{}), "empty text falls back")

	a, _, _ := newAuth(&stubVerifier{err: serverError{text: "invalid credentials"}})
	a.Init()
	err := a.SignIn(context.Background(), "x@y.z", "pw")
	var se *SignInError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid credentials", se.Message)
	assert.ErrorIs(t, err, verifier.ErrInvalidCredentials)
}

func TestSignInFailureLeavesNoSession(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
	}{
		{"invalid", verifier.ErrInvalidCredentials, "Invalid credentials."},
		{"validation", verifier.ErrValidation, "Email and password are required."},
		{"rate limited", &verifier.RateLimitError{RetryAfter: time.Minute}, "Too many failed attempts.  Try again later."},
		{"network", errors.New("dial tcp: refused"), "Sign-in failed.  Please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, slot, _ := newAuth(&stubVerifier{err: tc.err})
			a.Init()

			err := a.SignIn(context.Background(), "x@y.z", "pw")
			var se *SignInError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.msg, se.Message)
			assert.ErrorIs(t, err, tc.err)

			_, lerr := slot.Load()
			assert.ErrorIs(t, lerr, session.ErrEmpty)
			assert.Equal(t, Unauthenticated, a.State())
		})
	}
}

func TestSignInRejectsReentry(t *testing.T) {
	v := &stubVerifier{rec: sample(), block: make(chan struct{})}
	a, _, _ := newAuth(v)
	a.Init()

	var wg sync.WaitGroup
	wg.Add(1)
	var first error
	go func() {
		defer wg.Done()
		first = a.SignIn(context.Background(), "owner@eyegonal.com", "pw")
	}()

	require.Eventually(t, func() bool { return a.inFlight.Load() }, time.Second, time.Millisecond)
	err := a.SignIn(context.Background(), "owner@eyegonal.com", "pw")
	assert.ErrorIs(t, err, ErrSignInInFlight)

	close(v.block)
	wg.Wait()
	require.NoError(t, first)
	assert.Equal(t, 1, v.calls)
}

func TestSignInTimeout(t *testing.T) {
	v := &stubVerifier{block: make(chan struct{})}
	c := &clock{t: time.Now()}
	m := session.NewManager(&session.MemorySlot{}, session.WithClock(c.Now))
	a := New(v, m, WithTimeout(10*time.Millisecond))
	a.Init()

	err := a.SignIn(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, a.IsAdmin())
}

func TestSignInSupersededByCaller(t *testing.T) {
	v := &stubVerifier{rec: sample()}
	a, slot, _ := newAuth(v)
	a.Init()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The stub ignores ctx when not blocking, so Verify succeeds after the
	// caller has already gone away.
	err := a.SignIn(ctx, "owner@eyegonal.com", "pw")
	assert.ErrorIs(t, err, ErrSuperseded)

	_, lerr := slot.Load()
	assert.ErrorIs(t, lerr, session.ErrEmpty)
}

func TestSignOut(t *testing.T) {
	a, slot, _ := newAuth(&stubVerifier{rec: sample()})
	a.Init()
	require.NoError(t, a.SignIn(context.Background(), "owner@eyegonal.com", "pw"))

	a.SignOut()
	a.SignOut()
	assert.Equal(t, Unauthenticated, a.State())
	_, err := slot.Load()
	assert.ErrorIs(t, err, session.ErrEmpty)
}

func TestExpiryObservedOnNextRead(t *testing.T) {
	a, slot, c := newAuth(&stubVerifier{rec: sample()})
	a.Init()
	require.NoError(t, a.SignIn(context.Background(), "owner@eyegonal.com", "pw"))

	var seen []State
	cancel := a.Subscribe(func(s State) { seen = append(seen, s) })
	defer cancel()

	c.t = c.t.Add(session.Lifetime)
	assert.False(t, a.IsAdmin())
	assert.Equal(t, []State{Expired, Unauthenticated}, seen)

	_, err := slot.Load()
	assert.ErrorIs(t, err, session.ErrEmpty)
}

func TestExistingSessionRestoredOnInit(t *testing.T) {
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	slot := &session.MemorySlot{}
	m := session.NewManager(slot, session.WithClock(c.Now))
	require.NoError(t, m.Create(sample()))

	a := New(&stubVerifier{}, session.NewManager(slot, session.WithClock(c.Now)))
	assert.Equal(t, Authenticated, a.Init())
}

func TestUnsubscribe(t *testing.T) {
	a, _, _ := newAuth(&stubVerifier{rec: sample()})
	n := 0
	cancel := a.Subscribe(func(State) { n++ })
	a.Init()
	cancel()
	require.NoError(t, a.SignIn(context.Background(), "owner@eyegonal.com", "pw"))
	assert.Equal(t, 1, n)
}
