package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	adminstore "github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/session"
	"github.com/yanizio/eyegonal/internal/verifier"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := adminstore.NewMemoryStore(adminstore.Record{
		ID:           "a1",
		Email:        "admin@eyegonal.com",
		PasswordHash: string(h),
		CreatedAt:    time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	})
	codec, err := session.NewCookieCodec([]byte(strings.Repeat("k", 32)), false)
	require.NoError(t, err)

	c := New(verifier.New(store, verifier.WithDummyCost(bcrypt.MinCost)), codec)
	r := chi.NewRouter()
	r.Mount(c.Prefix(), c.Routes())
	return r
}

func do(h http.Handler, method, path, ctype, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if ctype != "" {
		r.Header.Set("Content-Type", ctype)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.StorageKey {
			return c
		}
	}
	t.Fatalf("no %s cookie set", session.StorageKey)
	return nil
}

func formLogin(h http.Handler, email, pw string) *httptest.ResponseRecorder {
	body := url.Values{"email": {email}, "password": {pw}}.Encode()
	return do(h, http.MethodPost, LoginPath, "application/x-www-form-urlencoded", body)
}

func TestLoginFlow(t *testing.T) {
	h := newRouter(t)

	rr := formLogin(h, "admin@eyegonal.com", "admin123")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, DashboardPath, rr.Header().Get("Location"))
	ck := sessionCookie(t, rr)
	assert.True(t, ck.HttpOnly)

	me := do(h, http.MethodGet, "/admin/me", "", "", ck)
	require.Equal(t, http.StatusOK, me.Code)
	var out struct {
		AdminUser adminstore.PublicRecord `json:"adminUser"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &out))
	assert.Equal(t, "a1", out.AdminUser.ID)
	require.NotNil(t, out.AdminUser.LastLogin)

	dash := do(h, http.MethodGet, DashboardPath, "", "", ck)
	assert.Equal(t, http.StatusOK, dash.Code)

	already := do(h, http.MethodGet, LoginPath, "", "", ck)
	assert.Equal(t, http.StatusSeeOther, already.Code)
	assert.Equal(t, DashboardPath, already.Header().Get("Location"))
}

func TestConcurrentLoginsEachSucceed(t *testing.T) {
	h := newRouter(t)

	var wg sync.WaitGroup
	codes := make([]int, 4)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = formLogin(h, "admin@eyegonal.com", "admin123").Code
		}(i)
	}
	wg.Wait()
	for _, code := range codes {
		assert.Equal(t, http.StatusSeeOther, code)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(verifier.ErrValidation))
	assert.Equal(t, http.StatusUnauthorized, statusFor(verifier.ErrInvalidCredentials))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(&verifier.RateLimitError{RetryAfter: time.Minute}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestJSONLogin(t *testing.T) {
	h := newRouter(t)
	rr := do(h, http.MethodPost, LoginPath, "application/json",
		`{"email":"ADMIN@eyegonal.com","password":"admin123"}`)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	sessionCookie(t, rr)
}

func TestLoginFailures(t *testing.T) {
	h := newRouter(t)

	wrong := formLogin(h, "admin@eyegonal.com", "nope")
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials."}`, wrong.Body.String())
	assert.Empty(t, wrong.Result().Cookies())

	unknown := formLogin(h, "ghost@eyegonal.com", "nope")
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	missing := formLogin(h, "admin@eyegonal.com", "")
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.JSONEq(t, `{"error":"Email and password are required."}`, missing.Body.String())

	bad := do(h, http.MethodPost, LoginPath, "application/json", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestGuardWithoutSession(t *testing.T) {
	h := newRouter(t)

	rr := do(h, http.MethodGet, "/admin/me", "", "")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))

	login := do(h, http.MethodGet, LoginPath, "", "")
	assert.Equal(t, http.StatusOK, login.Code)
	assert.JSONEq(t, `{"authenticated":false}`, login.Body.String())
}

func TestGuardClearsTamperedCookie(t *testing.T) {
	h := newRouter(t)
	ck := &http.Cookie{Name: session.StorageKey, Value: "not-a-token"}

	rr := do(h, http.MethodGet, "/admin/me", "", "", ck)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	cleared := sessionCookie(t, rr)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLogout(t *testing.T) {
	h := newRouter(t)
	ck := sessionCookie(t, formLogin(h, "admin@eyegonal.com", "admin123"))

	out := do(h, http.MethodPost, "/admin/logout", "", "", ck)
	assert.Equal(t, http.StatusSeeOther, out.Code)
	assert.Equal(t, LoginPath, out.Header().Get("Location"))
	assert.Equal(t, -1, sessionCookie(t, out).MaxAge)

	again := do(h, http.MethodPost, "/admin/logout", "", "")
	assert.Equal(t, http.StatusSeeOther, again.Code)
}

func TestLoginLockoutSetsRetryAfter(t *testing.T) {
	h := newRouter(t)
	for i := 0; i < verifier.DefaultAccountLimits.MaxFailures; i++ {
		formLogin(h, "admin@eyegonal.com", "nope")
	}
	rr := formLogin(h, "admin@eyegonal.com", "admin123")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}
