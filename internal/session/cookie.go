// internal/session/cookie.go
//
// Cookie-backed Slot for the web back-office.
//
// Context
// -------
// Browsers visiting /admin keep the session blob in an HttpOnly cookie.  The
// blob travels as an HS256 JWT so the server can tell its own cookies from
// edited ones; a bad signature reads as corrupt, which the Manager turns
// into "logged out".  Expiry stays the Manager's job, so the token carries
// no exp claim.
//
// A CookieSlot is built per request.  Writes are remembered locally so a
// Current() after Create() in the same handler sees the new value before
// the browser sends the cookie back.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const cookieIssuer = "eyegonal-admin"

// ErrCorrupt wraps cookie decode and signature failures.
var ErrCorrupt = errors.New("session cookie corrupt")

// CookieCodec signs and verifies session cookies.  Create once at startup.
type CookieCodec struct {
	key    []byte
	name   string
	secure bool
}

// NewCookieCodec returns a codec using key (at least 32 bytes).
func NewCookieCodec(key []byte, secure bool) (*CookieCodec, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("session signing key must be at least 32 bytes, got %d", len(key))
	}
	return &CookieCodec{key: append([]byte(nil), key...), name: StorageKey, secure: secure}, nil
}

type cookieClaims struct {
	jwt.RegisteredClaims
	Session json.RawMessage `json:"session"`
}

// Slot binds the codec to one request/response pair.
func (c *CookieCodec) Slot(w http.ResponseWriter, r *http.Request) *CookieSlot {
	return &CookieSlot{codec: c, w: w, r: r}
}

func (c *CookieCodec) sign(raw []byte, now time.Time) (string, error) {
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   cookieIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Session: raw,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

func (c *CookieCodec) verify(tok string) ([]byte, error) {
	var claims cookieClaims
	_, err := jwt.ParseWithClaims(tok, &claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(claims.Session) == 0 {
		return nil, ErrCorrupt
	}
	return claims.Session, nil
}

// CookieSlot implements Slot over one HTTP exchange.
type CookieSlot struct {
	codec *CookieCodec
	w     http.ResponseWriter
	r     *http.Request

	written bool
	pending []byte // nil after Clear
}

var _ Slot = (*CookieSlot)(nil)

func (s *CookieSlot) Load() ([]byte, error) {
	if s.written {
		if s.pending == nil {
			return nil, ErrEmpty
		}
		return append([]byte(nil), s.pending...), nil
	}
	ck, err := s.r.Cookie(s.codec.name)
	if err != nil || ck.Value == "" {
		return nil, ErrEmpty
	}
	return s.codec.verify(ck.Value)
}

func (s *CookieSlot) Store(raw []byte) error {
	now := time.Now()
	tok, err := s.codec.sign(raw, now)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.codec.name,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.codec.secure || s.r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Expires:  now.Add(Lifetime),
	})
	s.written, s.pending = true, append([]byte(nil), raw...)
	return nil
}

func (s *CookieSlot) Clear() error {
	if s.written && s.pending == nil {
		return nil
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.codec.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.codec.secure || s.r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	s.written, s.pending = true, nil
	return nil
}
