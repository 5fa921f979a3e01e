package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredential = "INVALID_CREDENTIAL"
	textCodeBackendFailure    = "BACKEND_FAILURE"
	textCodeTokenInvalid      = "TOKEN_INVALID"
	textCodeRateLimited       = "RATE_LIMITED"
	textCodeTimedOut          = "TIMED_OUT"
	textCodeCancelled         = "CANCELLED"
)

// ErrInvalidCredential is returned when a credential fails format validation
// before reaching any backend.
var ErrInvalidCredential = goerrors.New("invalid credential", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidCredential).
	WithCode(goerrors.CodeBadRequest)

// ErrBackendFailure replaces any backend-internal error at the client
// boundary. Provider, worker, and storage details never cross it.
var ErrBackendFailure = goerrors.New("verification backend failure", goerrors.CategoryExternal).
	WithTextCode(textCodeBackendFailure)

// ErrTokenInvalid covers expired, forged, and malformed process tokens.
// The reason is deliberately not exposed.
var ErrTokenInvalid = goerrors.New("process token invalid", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenInvalid)

// ErrRateLimited is surfaced distinctly so clients can back off.
var ErrRateLimited = goerrors.New("too many verification requests", goerrors.CategoryRateLimit).
	WithTextCode(textCodeRateLimited)

// ErrTimedOut marks a deadline expiry (OAuth flow, worker liveness check).
var ErrTimedOut = goerrors.New("verification timed out", goerrors.CategoryOperation).
	WithTextCode(textCodeTimedOut)

// ErrCancelled marks a user- or caller-initiated abort, distinct from a timeout.
var ErrCancelled = goerrors.New("verification cancelled", goerrors.CategoryOperation).
	WithTextCode(textCodeCancelled)

// IsInvalidCredential reports whether err carries the InvalidCredential outcome.
func IsInvalidCredential(err error) bool { return hasTextCode(err, textCodeInvalidCredential) }

// IsBackendFailure reports whether err carries the BackendFailure outcome.
func IsBackendFailure(err error) bool { return hasTextCode(err, textCodeBackendFailure) }

// IsTokenInvalid reports whether err carries the TokenInvalid outcome.
func IsTokenInvalid(err error) bool { return hasTextCode(err, textCodeTokenInvalid) }

// IsRateLimited reports whether err carries the RateLimited outcome.
func IsRateLimited(err error) bool { return hasTextCode(err, textCodeRateLimited) }

// IsTimedOut reports whether err carries the TimedOut outcome.
func IsTimedOut(err error) bool { return hasTextCode(err, textCodeTimedOut) }

// IsCancelled reports whether err carries the Cancelled outcome.
func IsCancelled(err error) bool { return hasTextCode(err, textCodeCancelled) }

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
