package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Credential is what a backend receives at request time, after the
// orchestrator has validated syntax and resolved the user record.
type Credential struct {
	Type  CredentialType
	Value string
	User  *User
}

// Attempt carries everything a backend needs at confirm time. The fields are
// reconstructed from the process token, never from server-side session state.
type Attempt struct {
	RequestID   string
	Method      VerificationMethod
	Fingerprint string
	User        *User
	Input       VerificationInput
}

// RequestOutcome is the backend's answer to a verification request.
type RequestOutcome struct {
	// NeedsSecondFactor tells the client it must collect an additional OTP
	// beyond the primary verification value.
	NeedsSecondFactor bool
}

// ConfirmOutcome is the backend's answer to a verification confirmation.
// Tokens is set only when the backend itself performs the provider exchange
// (password grant); otherwise the orchestrator exchanges after confirm.
type ConfirmOutcome struct {
	Success bool
	Tokens  *SessionTokenPair
}

// Backend is one verification strategy. Implementations must never let
// provider or storage error detail escape: anything internal comes back as a
// generic backend failure.
type Backend interface {
	Request(ctx context.Context, cred Credential) (*RequestOutcome, error)
	Confirm(ctx context.Context, attempt Attempt) (*ConfirmOutcome, error)
}

// BackendRegistry dispatches verification methods to backends.
type BackendRegistry map[VerificationMethod]Backend

// Resolve returns the backend for the method, or an error for methods with
// no registered backend.
func (r BackendRegistry) Resolve(method VerificationMethod) (Backend, error) {
	backend, ok := r[method]
	if !ok || backend == nil {
		return nil, goerrors.New("no backend registered for method", goerrors.CategoryBadInput).
			WithTextCode(textCodeBackendFailure).
			WithMetadata(map[string]any{"method": string(method)})
	}
	return backend, nil
}

// sanitizeBackendErr collapses backend-internal errors to the generic
// failure, preserving only cancellation, timeout, and rate limiting which
// the client is allowed to distinguish.
func sanitizeBackendErr(err error) error {
	if err == nil {
		return nil
	}

	if IsCancelled(err) || IsTimedOut(err) || IsRateLimited(err) || IsBackendFailure(err) {
		return err
	}

	return goerrors.Wrap(err, goerrors.CategoryExternal, "verification backend failure").
		WithTextCode(textCodeBackendFailure)
}
