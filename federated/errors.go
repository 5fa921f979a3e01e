// Package federated handles server-side OAuth provider plumbing: encrypted
// state, authorization URLs, code exchange, and ID token validation.
package federated

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound = "federated_provider_not_found"
	TextCodeInvalidState     = "federated_invalid_state"
	TextCodeStateExpired     = "federated_state_expired"
	TextCodeExchangeFailed   = "federated_exchange_failed"
	TextCodeIDTokenInvalid   = "federated_id_token_invalid"
	TextCodeEmailNotVerified = "federated_email_not_verified"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("federated provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrExchangeFailed is returned when the provider code exchange fails.
var ErrExchangeFailed = errors.New("authorization code exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeExchangeFailed).
	WithCode(errors.CodeUnauthorized)

// ErrIDTokenInvalid is returned when an ID token fails signature or claim checks.
var ErrIDTokenInvalid = errors.New("id token invalid", errors.CategoryAuth).
	WithTextCode(TextCodeIDTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotVerified is returned when the provider reports the email unverified.
var ErrEmailNotVerified = errors.New("provider email not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)
