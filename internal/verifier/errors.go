package verifier

import (
	"errors"
	"time"
)

// Sentinel errors returned by Verify.  Callers map them to user-facing
// messages; the verifier itself never formats a response.
var (
	ErrValidation         = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many failed sign-in attempts; try again later")
	ErrInternal           = errors.New("internal server error")
)

// RateLimitError carries the lockout remainder.  It matches ErrRateLimited
// under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string        { return ErrRateLimited.Error() }
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfter extracts the lockout remainder from err, or zero.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
