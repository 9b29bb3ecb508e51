package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/requestinfo"
	"github.com/yanizio/eyegonal/internal/verifier"
)

const endpoint = "/functions/v1/verify-admin-password"

func setup(t *testing.T, ip *verifier.Limiter) (http.Handler, *admin.MemoryStore) {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := admin.NewMemoryStore(admin.Record{
		ID:           "7c1d2a9e-0000-4000-8000-000000000001",
		Email:        "admin@eyegonal.com",
		PasswordHash: string(h),
		CreatedAt:    time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	})
	svc := verifier.New(store, verifier.WithDummyCost(bcrypt.MinCost))
	return mount(New(svc, ip, []string{"https://eyegonal.com"})), store
}

func mount(c *Component) http.Handler {
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich(nil))
	r.Mount(c.Prefix(), c.Routes())
	return r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.RemoteAddr = "203.0.113.9:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestVerifySuccess(t *testing.T) {
	h, store := setup(t, nil)
	before := time.Now()

	rr := post(h, `{"email":"admin@eyegonal.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		AdminUser map[string]any `json:"adminUser"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "admin@eyegonal.com", out.AdminUser["email"])
	assert.NotContains(t, out.AdminUser, "password_hash")
	assert.NotContains(t, rr.Body.String(), "$2a$")

	ll, err := time.Parse(time.RFC3339Nano, out.AdminUser["last_login"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, before, ll, time.Second)
	assert.Equal(t, 1, store.UpdateCount())
}

func TestVerifyUniformFailures(t *testing.T) {
	h, store := setup(t, nil)

	unknown := post(h, `{"email":"nobody@eyegonal.com","password":"x"}`)
	wrong := post(h, `{"email":"admin@eyegonal.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.JSONEq(t, `{"error":"invalid credentials"}`, wrong.Body.String())
	assert.Equal(t, 0, store.UpdateCount())
}

func TestVerifyBadRequests(t *testing.T) {
	h, _ := setup(t, nil)
	cases := []struct {
		name, body, want string
	}{
		{"malformed json", `{"email":`, msgBadBody},
		{"missing password", `{"email":"admin@eyegonal.com"}`, msgRequired},
		{"empty email", `{"email":"","password":"x"}`, msgRequired},
		{"blank email", `{"email":"   ","password":"x"}`, msgRequired},
		{"oversized", `{"email":"` + strings.Repeat("a", MaxBody) + `","password":"x"}`, msgBadBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := post(h, tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"`+tc.want+`"}`, rr.Body.String())
		})
	}
}

func TestVerifyIPLockout(t *testing.T) {
	ip := verifier.NewLimiter(verifier.LimiterConfig{
		MaxFailures: 2, BaseLockout: time.Minute, MaxLockout: time.Hour, Expiry: time.Hour,
	})
	h, _ := setup(t, ip)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, post(h, `{"email":"x@y.z","password":"bad"}`).Code)
	}
	rr := post(h, `{"email":"admin@eyegonal.com","password":"admin123"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestVerifyAccountLockout(t *testing.T) {
	h, _ := setup(t, nil)
	for i := 0; i < verifier.DefaultAccountLimits.MaxFailures; i++ {
		post(h, `{"email":"admin@eyegonal.com","password":"bad"}`)
	}
	rr := post(h, `{"email":"admin@eyegonal.com","password":"admin123"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, string, string) (admin.PublicRecord, error) {
	return admin.PublicRecord{}, errors.New("db exploded")
}

func TestVerifyInternalError(t *testing.T) {
	h := mount(New(failingVerifier{}, nil, nil))
	rr := post(h, `{"email":"a@b.c","password":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "exploded")
}

func TestVerifyCORSPreflight(t *testing.T) {
	h, _ := setup(t, nil)
	r := httptest.NewRequest(http.MethodOptions, endpoint, nil)
	r.Header.Set("Origin", "https://eyegonal.com")
	r.Header.Set("Access-Control-Request-Method", "POST")
	r.Header.Set("Access-Control-Request-Headers", "authorization, x-client-info, apikey, content-type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://eyegonal.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestVerifyRejectsGET(t *testing.T) {
	h, _ := setup(t, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, endpoint, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestVerifyIPLockoutIgnoresForwardedForRotation(t *testing.T) {
	ip := verifier.NewLimiter(verifier.LimiterConfig{
		MaxFailures: 2, BaseLockout: time.Minute, MaxLockout: time.Hour, Expiry: time.Hour,
	})
	h, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := admin.NewMemoryStore(admin.Record{
		ID:           "7c1d2a9e-0000-4000-8000-000000000001",
		Email:        "admin@eyegonal.com",
		PasswordHash: string(h),
	})
	c := New(verifier.New(store, verifier.WithDummyCost(bcrypt.MinCost)), ip, nil)

	r := chi.NewRouter()
	r.Use(requestinfo.Enrich(requestinfo.DefaultProxies))
	r.Mount(c.Prefix(), c.Routes())

	send := func(n int, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.2:443"
		// The client controls everything left of what the proxy appended.
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d, 203.0.113.9", n))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, send(i, `{"email":"x@y.z","password":"bad"}`).Code)
	}
	rr := send(99, `{"email":"admin@eyegonal.com","password":"admin123"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}
