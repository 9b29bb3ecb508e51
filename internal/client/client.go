// internal/client/client.go
//
// Remote Verifier: calls the verify-admin-password endpoint over HTTP.
//
// Context
// -------
// The CLI and any out-of-process consumer sign in through this client.  It
// satisfies auth.Verifier, so the Session Consumer is unaware whether
// verification ran in-process or across the network.
//
// Notes
// -----
// • One attempt per call; callers decide whether to retry.
// • Transport comes from go-cleanhttp (no shared global state).
// • Oxford commas, two spaces after periods.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/admin"
	"github.com/yanizio/eyegonal/internal/verifier"
)

// Path is the endpoint route relative to the service base URL.
const Path = "/functions/v1/verify-admin-password"

// DefaultTimeout bounds one request including body read.
const DefaultTimeout = 15 * time.Second

// ErrNetwork covers transport failures and unexpected responses.
var ErrNetwork = errors.New("verification service unavailable")

// maxResponse caps how much of a response body is read.
const maxResponse = 64 << 10

// StatusError carries the server's error text and the sentinel it maps to.
type StatusError struct {
	Code int
	Text string
	err  error
}

func (e *StatusError) Error() string {
	if e.Text != "" {
		return e.Text
	}
	return e.err.Error()
}

func (e *StatusError) Unwrap() error { return e.err }

// DisplayText is the server's error text, empty when it sent none.
func (e *StatusError) DisplayText() string { return e.Text }

// Remote implements auth.Verifier.
type Remote struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// Option customises Remote.
type Option func(*Remote)

// WithHTTPClient swaps the underlying client (tests, custom TLS).
func WithHTTPClient(c *http.Client) Option { return func(r *Remote) { r.http = c } }

// WithAPIKey sends key in the apikey header.
func WithAPIKey(key string) Option { return func(r *Remote) { r.apiKey = key } }

// New returns a Remote for the service at baseURL.
func New(baseURL string, opts ...Option) *Remote {
	hc := cleanhttp.DefaultClient()
	hc.Timeout = DefaultTimeout
	r := &Remote{
		endpoint: strings.TrimRight(baseURL, "/") + Path,
		http:     hc,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type request struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type response struct {
	AdminUser *admin.PublicRecord `json:"adminUser"`
	Error     string              `json:"error"`
}

// Verify posts the credentials and maps the response.
func (r *Remote) Verify(ctx context.Context, email, password string) (admin.PublicRecord, error) {
	body, err := json.Marshal(request{Email: email, Password: password})
	if err != nil {
		return admin.PublicRecord{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return admin.PublicRecord{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Info", "eyegonal-adminctl")
	if r.apiKey != "" {
		req.Header.Set("Apikey", r.apiKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return admin.PublicRecord{}, ctxErr
		}
		zap.L().Debug("verify request", zap.String("endpoint", r.endpoint), zap.Error(err))
		return admin.PublicRecord{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var out response
	decErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponse)).Decode(&out)

	switch resp.StatusCode {
	case http.StatusOK:
		if decErr != nil || out.AdminUser == nil || out.AdminUser.ID == "" {
			return admin.PublicRecord{}, fmt.Errorf("%w: malformed success response", ErrNetwork)
		}
		return *out.AdminUser, nil
	case http.StatusBadRequest:
		return admin.PublicRecord{}, &StatusError{Code: resp.StatusCode, Text: out.Error, err: verifier.ErrValidation}
	case http.StatusUnauthorized:
		return admin.PublicRecord{}, &StatusError{Code: resp.StatusCode, Text: out.Error, err: verifier.ErrInvalidCredentials}
	case http.StatusTooManyRequests:
		return admin.PublicRecord{}, &StatusError{
			Code: resp.StatusCode,
			Text: out.Error,
			err:  &verifier.RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))},
		}
	default:
		return admin.PublicRecord{}, &StatusError{Code: resp.StatusCode, Text: out.Error, err: ErrNetwork}
	}
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
