package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/eyegonal/internal/admin"
)

func hashOf(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func seeded(t *testing.T) *admin.MemoryStore {
	t.Helper()
	return admin.NewMemoryStore(admin.Record{
		ID:           "7c1d2a9e-0000-4000-8000-000000000001",
		Email:        "admin@eyegonal.com",
		PasswordHash: hashOf(t, "admin123"),
		CreatedAt:    time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	})
}

func newService(store admin.Store, opts ...Option) *Service {
	return New(store, append([]Option{WithDummyCost(bcrypt.MinCost)}, opts...)...)
}

func TestVerify_Success(t *testing.T) {
	store := seeded(t)
	svc := newService(store)

	before := time.Now()
	pub, err := svc.Verify(context.Background(), "admin@eyegonal.com", "admin123")
	require.NoError(t, err)

	assert.Equal(t, "admin@eyegonal.com", pub.Email)
	require.NotNil(t, pub.LastLogin)
	assert.WithinDuration(t, before, *pub.LastLogin, time.Second)
	assert.Equal(t, 1, store.UpdateCount())

	rec, err := store.FindByEmail(context.Background(), "admin@eyegonal.com")
	require.NoError(t, err)
	require.NotNil(t, rec.LastLogin)
	assert.WithinDuration(t, before, *rec.LastLogin, time.Second)
}

func TestVerify_CaseInsensitiveEmail(t *testing.T) {
	svc := newService(seeded(t))
	pub, err := svc.Verify(context.Background(), "Admin@EYEGONAL.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin@eyegonal.com", pub.Email)
}

func TestVerify_WrongPassword(t *testing.T) {
	store := seeded(t)
	svc := newService(store)

	_, err := svc.Verify(context.Background(), "admin@eyegonal.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, store.UpdateCount())
}

func TestVerify_UniformFailure(t *testing.T) {
	svc := newService(seeded(t))
	ctx := context.Background()

	_, missing := svc.Verify(ctx, "missing@x.com", "whatever")
	_, wrong := svc.Verify(ctx, "admin@eyegonal.com", "wrongpassword")

	require.Error(t, missing)
	require.Error(t, wrong)
	assert.Equal(t, missing, wrong)
	assert.Equal(t, missing.Error(), wrong.Error())
}

func TestVerify_Validation(t *testing.T) {
	store := seeded(t)
	svc := newService(store)
	ctx := context.Background()

	cases := []struct{ email, pw string }{
		{"", "admin123"},
		{"   ", "admin123"},
		{"admin@eyegonal.com", ""},
		{"", ""},
	}
	for _, c := range cases {
		_, err := svc.Verify(ctx, c.email, c.pw)
		assert.ErrorIs(t, err, ErrValidation, "email=%q pw=%q", c.email, c.pw)
	}
	assert.Zero(t, store.UpdateCount())
}

type brokenStore struct{ admin.Store }

func (brokenStore) FindByEmail(context.Context, string) (*admin.Record, error) {
	return nil, errors.New("connection reset")
}

func TestVerify_LookupErrorLooksLikeInvalid(t *testing.T) {
	svc := newService(brokenStore{})
	_, err := svc.Verify(context.Background(), "admin@eyegonal.com", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerify_MalformedHash(t *testing.T) {
	store := admin.NewMemoryStore(admin.Record{ID: "a1", Email: "a@x.com", PasswordHash: "plaintext"})
	svc := newService(store)
	_, err := svc.Verify(context.Background(), "a@x.com", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, store.UpdateCount())
}

func TestVerify_LastLoginFailureIsBestEffort(t *testing.T) {
	store := seeded(t)
	store.FailUpdates = errors.New("read-only replica")
	svc := newService(store)

	pub, err := svc.Verify(context.Background(), "admin@eyegonal.com", "admin123")
	require.NoError(t, err)
	assert.NotNil(t, pub.LastLogin)
}

func TestVerify_CanceledCallerStillStampsLastLogin(t *testing.T) {
	store := seeded(t)
	svc := newService(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Verify(ctx, "admin@eyegonal.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, 1, store.UpdateCount())
}

func TestVerify_AccountLockout(t *testing.T) {
	store := seeded(t)
	svc := newService(store)
	ctx := context.Background()

	for i := 0; i < DefaultAccountLimits.MaxFailures; i++ {
		_, err := svc.Verify(ctx, "admin@eyegonal.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := svc.Verify(ctx, "ADMIN@eyegonal.com", "admin123")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Greater(t, RetryAfter(err), time.Duration(0))
	assert.Zero(t, store.UpdateCount())
}

func TestVerify_NoLimiter(t *testing.T) {
	svc := newService(seeded(t), WithLimiter(nil))
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, _ = svc.Verify(ctx, "admin@eyegonal.com", "nope")
	}
	_, err := svc.Verify(ctx, "admin@eyegonal.com", "admin123")
	assert.NoError(t, err)
}
