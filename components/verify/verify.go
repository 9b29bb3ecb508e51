// components/verify/verify.go
//
// Credential verification endpoint.
//
// Context
// -------
// POST /functions/v1/verify-admin-password accepts {"email","password"} and
// answers with the administrator's public record or a uniform error.  The
// route and body shapes match what existing browser callers already send.
//
// Responses
// ---------
//   200  {"adminUser":{"id","email","created_at","last_login"}}
//   400  {"error":"invalid request body"} | {"error":"email and password are required"}
//   401  {"error":"invalid credentials"}
//   429  {"error":"too many failed sign-in attempts; try again later"} + Retry-After
//   500  {"error":"internal server error"}
//
// Notes
// -----
// • Every credential failure produces a byte-identical 401.
// • Per-IP throttling lives here; per-account throttling lives in the
//   verifier so every caller gets it.
// • Oxford commas, two spaces after periods.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/component"
	"github.com/yanizio/eyegonal/internal/metrics"
	"github.com/yanizio/eyegonal/internal/middleware"
	"github.com/yanizio/eyegonal/internal/requestinfo"
	"github.com/yanizio/eyegonal/internal/respond"
	"github.com/yanizio/eyegonal/internal/verifier"
)

// MaxBody caps the request body.
const MaxBody = 4 << 10

const (
	msgBadBody  = "invalid request body"
	msgRequired = "email and password are required"
)

// Verifier is satisfied by *verifier.Service.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (admin.PublicRecord, error)
}

var _ component.Component = (*Component)(nil)

// Component serves the verification endpoint.
type Component struct {
	svc      Verifier
	ip       *verifier.Limiter
	origins  []string
	validate *validator.Validate
}

// New wires a Component directly; Init does the same from component.Deps.
func New(svc Verifier, ip *verifier.Limiter, origins []string) *Component {
	return &Component{svc: svc, ip: ip, origins: origins, validate: validator.New()}
}

/*────────────────── component.Component methods ───────────────────────────*/

func (c *Component) Name() string         { return "verify" }
func (c *Component) Prefix() string       { return "/functions/v1" }
func (c *Component) Migrations() []string { return nil }

// Init pulls the verifier, IP limiter, and CORS origins from d.
func (c *Component) Init(d component.Deps) error {
	if d.Verifier == nil {
		return errors.New("verify: nil verifier")
	}
	c.svc = d.Verifier
	c.ip = d.IPLimiter
	if d.Config != nil {
		c.origins = d.Config.HTTP.AllowedOrigins
	}
	if c.validate == nil {
		c.validate = validator.New()
	}
	return nil
}

// Routes builds the router mounted at Prefix().
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(c.origins))
	r.Post("/verify-admin-password", c.handleVerify)
	return r
}

func init() { component.Register(&Component{}) }

/*──────────────────────────── Handler ──────────────────────────────────────*/

type request struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type response struct {
	AdminUser admin.PublicRecord `json:"adminUser"`
}

func (c *Component) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody)).Decode(&req); err != nil {
		metrics.VerifyTotal.WithLabelValues(metrics.OutcomeValidation).Inc()
		respond.Error(w, http.StatusBadRequest, msgBadBody)
		return
	}
	if err := c.validate.Struct(req); err != nil {
		metrics.VerifyTotal.WithLabelValues(metrics.OutcomeValidation).Inc()
		respond.Error(w, http.StatusBadRequest, msgRequired)
		return
	}

	info := requestinfo.FromContext(r.Context())
	ipKey := info.IPString()
	if blocked, retry := c.ip.Check(ipKey); blocked {
		metrics.VerifyTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		audit(info, "ip locked out")
		tooMany(w, retry)
		return
	}

	rec, err := c.svc.Verify(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		audit(info, "success")
		respond.JSON(w, http.StatusOK, response{AdminUser: rec})
	case errors.Is(err, verifier.ErrValidation):
		respond.Error(w, http.StatusBadRequest, msgRequired)
	case errors.Is(err, verifier.ErrRateLimited):
		audit(info, "account locked out")
		tooMany(w, verifier.RetryAfter(err))
	case errors.Is(err, verifier.ErrInvalidCredentials):
		c.ip.Failure(ipKey)
		audit(info, "rejected")
		respond.Error(w, http.StatusUnauthorized, verifier.ErrInvalidCredentials.Error())
	default:
		metrics.VerifyTotal.WithLabelValues(metrics.OutcomeInternal).Inc()
		zap.L().Error("verify", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, verifier.ErrInternal.Error())
	}
}

func tooMany(w http.ResponseWriter, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	respond.Error(w, http.StatusTooManyRequests, verifier.ErrRateLimited.Error())
}

func audit(info *requestinfo.Info, outcome string) {
	if info == nil {
		zap.L().Info("verify request", zap.String("outcome", outcome))
		return
	}
	zap.L().Info("verify request",
		zap.String("outcome", outcome),
		zap.String("ip", info.IPString()),
		zap.String("country", info.Country),
		zap.String("browser", info.UA.Browser),
		zap.Bool("bot", info.UA.IsBot),
	)
}
