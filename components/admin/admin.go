// components/admin/admin.go
//
// Back-office sign-in flow over a signed session cookie.
//
// Routes (mounted at /admin)
// --------------------------
//   GET  /login      – 303 to /admin/dashboard when already signed in,
//                      otherwise {"authenticated":false}
//   POST /login      – form or JSON credentials → cookie + 303 /admin/dashboard
//   POST /logout     – clears the cookie → 303 /admin/login
//   GET  /dashboard  – guarded; the protected landing view
//   GET  /me         – guarded; {"adminUser":{…}}
//
// Notes
// -----
// • Each request gets its own auth.Auth over a CookieSlot, so the cookie is
//   the only state.
// • Failure bodies carry the consumer's display message, never the cause.
package admin

import (
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	adminstore "github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/auth"
	"github.com/yanizio/eyegonal/internal/component"
	"github.com/yanizio/eyegonal/internal/respond"
	"github.com/yanizio/eyegonal/internal/session"
	"github.com/yanizio/eyegonal/internal/verifier"
)

const (
	LoginPath     = "/admin/login"
	DashboardPath = "/admin/dashboard"
	maxBody       = 4 << 10
)

var _ component.Component = (*Component)(nil)

// Component encapsulates the back-office session surface.
type Component struct {
	verifier auth.Verifier
	cookies  *session.CookieCodec
	validate *validator.Validate
}

// New wires a Component directly; Init does the same from component.Deps.
func New(v auth.Verifier, cookies *session.CookieCodec) *Component {
	return &Component{verifier: v, cookies: cookies, validate: validator.New()}
}

/*────────────────── component.Component methods ───────────────────────────*/

func (c *Component) Name() string   { return "admin" }
func (c *Component) Prefix() string { return "/admin" }

// Migrations creates admin_users when missing.
func (c *Component) Migrations() []string { return []string{adminstore.Schema} }

// Init pulls the verifier and cookie codec from d.
func (c *Component) Init(d component.Deps) error {
	if d.Verifier == nil || d.Cookies == nil {
		return errors.New("admin: verifier and cookie codec are required")
	}
	c.verifier, c.cookies = d.Verifier, d.Cookies
	if c.validate == nil {
		c.validate = validator.New()
	}
	return nil
}

// Routes builds the router mounted at Prefix().
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", c.handleLoginGET)
	r.Post("/login", c.handleLoginPOST)
	r.Post("/logout", c.handleLogout)
	r.Group(func(g chi.Router) {
		g.Use(auth.RequireAdmin(c.consumer, LoginPath))
		g.Get("/dashboard", c.handleMe)
		g.Get("/me", c.handleMe)
	})
	return r
}

func init() { component.Register(&Component{}) }

// consumer builds a per-request Auth over the cookie slot.  Its in-flight
// guard therefore never trips across requests; double-submit protection
// is left to the login form, and concurrent POSTs each verify on their own.
func (c *Component) consumer(w http.ResponseWriter, r *http.Request) *auth.Auth {
	return auth.New(c.verifier, session.NewManager(c.cookies.Slot(w, r)))
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type credentials struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Component) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	if c.consumer(w, r).IsAdmin() {
		http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

func (c *Component) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := c.validate.Struct(creds); err != nil {
		respond.Error(w, http.StatusBadRequest, auth.Message(verifier.ErrValidation))
		return
	}

	if err := c.consumer(w, r).SignIn(r.Context(), creds.Email, creds.Password); err != nil {
		var se *auth.SignInError
		msg := auth.Message(err)
		if errors.As(err, &se) {
			msg = se.Message
		}
		if d := verifier.RetryAfter(err); d > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
		}
		respond.Error(w, statusFor(err), msg)
		return
	}
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	c.consumer(w, r).SignOut()
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (c *Component) handleMe(w http.ResponseWriter, r *http.Request) {
	rec, _ := auth.AdminFrom(r.Context())
	respond.JSON(w, http.StatusOK, map[string]any{"adminUser": rec})
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var creds credentials
	if mt == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&creds)
		return creds, err
	}
	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	creds.Email = r.PostForm.Get("email")
	creds.Password = r.PostForm.Get("password")
	return creds, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, verifier.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, verifier.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, verifier.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
