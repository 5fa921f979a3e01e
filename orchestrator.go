package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// VerificationRequest is the accepted outcome of a request call: a signed
// process token carrying the attempt, plus whether the client must collect an
// additional OTP.
type VerificationRequest struct {
	RequestID string `json:"request_id"`
	Token     string `json:"token"`
	OTPNeeded bool   `json:"otp_needed"`
}

// FederatedIdentity is an already-verified identity produced by an OAuth
// provider. It enters the orchestrator directly, bypassing request/confirm.
type FederatedIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Orchestrator drives a verification attempt end to end. It keeps no
// per-attempt memory: everything verify needs is reconstructed from the
// signed process token, so issue and verify may land on different instances.
type Orchestrator struct {
	repo      RepositoryManager
	tokens    *ProcessTokenService
	backends  BackendRegistry
	limiter   *RateLimiter
	exchanger TokenExchanger
	activity  ActivitySink

	attemptTTL time.Duration
	provider   LoggerProvider
	logger     Logger
}

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithBackend registers (or replaces) the backend for a method.
func WithBackend(method VerificationMethod, backend Backend) OrchestratorOption {
	return func(o *Orchestrator) {
		if backend != nil {
			o.backends[method] = backend
		}
	}
}

// WithEmailSender wires the out-of-band delivery channel for email codes.
func WithEmailSender(sender CodeSender) OrchestratorOption {
	return func(o *Orchestrator) {
		o.backends[MethodEmailCode] = NewCodeBackend(MethodEmailCode, o.repo.VerificationCodes(), sender, o.logger)
	}
}

// WithSMSSender wires the out-of-band delivery channel for SMS codes.
func WithSMSSender(sender CodeSender) OrchestratorOption {
	return func(o *Orchestrator) {
		o.backends[MethodSMSCode] = NewCodeBackend(MethodSMSCode, o.repo.VerificationCodes(), sender, o.logger)
	}
}

// WithFaceWorker registers the face backend over the given worker.
func WithFaceWorker(worker FaceWorker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.backends[MethodFace] = NewFaceBackend(worker, 0, o.logger)
	}
}

// WithActivitySink wires the audit sink.
func WithActivitySink(sink ActivitySink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.activity = normalizeActivitySink(sink)
	}
}

// WithRateLimiter overrides the per-caller request limiter.
func WithRateLimiter(limiter *RateLimiter) OrchestratorOption {
	return func(o *Orchestrator) {
		if limiter != nil {
			o.limiter = limiter
		}
	}
}

// WithOrchestratorLogger overrides the orchestrator logger.
func WithOrchestratorLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOrchestratorLoggerProvider resolves the logger from a provider.
func WithOrchestratorLoggerProvider(provider LoggerProvider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.provider, o.logger = ResolveLogger("auth:orchestrator", provider, nil)
	}
}

// NewOrchestrator builds an orchestrator from the given config. The password
// backend is registered by default; code, face, and extra backends attach via
// options.
func NewOrchestrator(cfg Config, repo RepositoryManager, exchanger TokenExchanger, opts ...OrchestratorOption) (*Orchestrator, error) {
	if cfg == nil {
		return nil, goerrors.New("orchestrator config is required", goerrors.CategoryBadInput)
	}

	if err := repo.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid repository manager")
	}

	attemptTTL := cfg.GetAttemptTTL()
	if attemptTTL <= 0 {
		attemptTTL = DefaultAttemptTTL
	}

	o := &Orchestrator{
		repo:       repo,
		tokens:     NewProcessTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), cfg.GetAudience(), nil),
		backends:   BackendRegistry{},
		limiter:    NewRateLimiter(cfg.GetRateLimitCeiling(), cfg.GetRateLimitWindow()),
		exchanger:  exchanger,
		activity:   noopActivitySink{},
		attemptTTL: attemptTTL,
		logger:     defLogger{},
	}

	o.backends[MethodPassword] = NewPasswordBackend(repo, exchanger, o.logger)

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o, nil
}

type requestOptions struct {
	dry       bool
	callerKey string
}

// RequestOption customizes a single request call.
type RequestOption func(*requestOptions)

// WithDryRun validates and issues a token without triggering out-of-band
// delivery. Clients use it for pre-flight checks.
func WithDryRun() RequestOption {
	return func(o *requestOptions) {
		o.dry = true
	}
}

// WithCallerKey overrides the rate-limit key for this call, e.g. with the
// client IP. The default keys on the credential fingerprint.
func WithCallerKey(key string) RequestOption {
	return func(o *requestOptions) {
		if key != "" {
			o.callerKey = key
		}
	}
}

// Request validates the credential, resolves the user record, dispatches to
// the backend for the method, and mints a process token binding the attempt.
func (o *Orchestrator) Request(ctx context.Context, credType CredentialType, method VerificationMethod, credential string, opts ...RequestOption) (*VerificationRequest, error) {
	options := &requestOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	// syntax rejection happens before any backend or storage contact
	if err := ValidateCredential(credType, credential); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "credential failed validation").
			WithTextCode(textCodeInvalidCredential).
			WithCode(goerrors.CodeBadRequest)
	}

	if credType == CredentialPhone {
		normalized, err := NormalizePhone(credential)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "credential failed validation").
				WithTextCode(textCodeInvalidCredential).
				WithCode(goerrors.CodeBadRequest)
		}
		credential = normalized
	}

	fingerprint, err := CredentialFingerprint(credential)
	if err != nil {
		return nil, err
	}

	callerKey := options.callerKey
	if callerKey == "" {
		callerKey = fingerprint
	}
	if !o.limiter.Allow(callerKey) {
		o.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventRequestRejected,
			Method:    method,
			Metadata:  map[string]any{"reason": "rate_limited"},
		})
		return nil, ErrRateLimited
	}

	backend, err := o.backends.Resolve(method)
	if err != nil {
		return nil, err
	}

	user, err := o.resolveUser(ctx, credType, credential, fingerprint)
	if err != nil {
		o.logger.Error("failed to resolve user for request: %v", err)
		return nil, sanitizeBackendErr(err)
	}

	outcome := &RequestOutcome{}
	if !options.dry {
		outcome, err = backend.Request(ctx, Credential{
			Type:  credType,
			Value: credential,
			User:  user,
		})
		if err != nil {
			return nil, sanitizeBackendErr(err)
		}
	}

	claims := &ProcessClaims{
		RequestID:             uuid.NewString(),
		Method:                method,
		CredentialFingerprint: fingerprint,
	}
	claims.Subject = user.ID.String()

	token, err := o.tokens.Issue(claims, o.attemptTTL)
	if err != nil {
		return nil, err
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRequestAccepted,
		UserID:    user.ID.String(),
		RequestID: claims.RequestID,
		Method:    method,
	})

	return &VerificationRequest{
		RequestID: claims.RequestID,
		Token:     token,
		OTPNeeded: outcome.NeedsSecondFactor,
	}, nil
}

// Verify reconstructs the attempt from the process token, confirms it with
// the backend, applies activation side effects, and exchanges the verified
// attempt for session tokens.
func (o *Orchestrator) Verify(ctx context.Context, token string, input VerificationInput) (*SessionTokenPair, error) {
	claims, err := o.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := o.repo.Users().GetByIdentifier(ctx, claims.Subject)
	if err != nil {
		// the account may have disappeared between request and verify
		o.logger.Warn("user lookup failed for request %s: %v", claims.RequestID, err)
		return nil, o.failVerify(ctx, claims, sanitizeBackendErr(err))
	}

	if err := o.checkFingerprint(claims, user); err != nil {
		return nil, o.failVerify(ctx, claims, err)
	}

	backend, err := o.backends.Resolve(claims.Method)
	if err != nil {
		return nil, o.failVerify(ctx, claims, err)
	}

	outcome, err := backend.Confirm(ctx, Attempt{
		RequestID:   claims.RequestID,
		Method:      claims.Method,
		Fingerprint: claims.CredentialFingerprint,
		User:        user,
		Input:       input,
	})
	if err != nil {
		return nil, o.failVerify(ctx, claims, sanitizeBackendErr(err))
	}

	if !outcome.Success {
		return nil, o.failVerify(ctx, claims, ErrBackendFailure)
	}

	if err := o.applyActivation(ctx, user, claims.Method); err != nil {
		o.logger.Error("activation side effects failed for user %s: %v", user.ID, err)
		return nil, o.failVerify(ctx, claims, sanitizeBackendErr(err))
	}

	pair := outcome.Tokens
	if pair == nil {
		pair, err = o.exchanger.Exchange(ctx, token)
		if err != nil {
			return nil, o.failVerify(ctx, claims, sanitizeBackendErr(err))
		}
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerifySuccess,
		UserID:    user.ID.String(),
		RequestID: claims.RequestID,
		Method:    claims.Method,
	})

	return pair, nil
}

// AcceptFederated admits an identity already verified by an OAuth provider.
// The provider tokens pass through unchanged; only the local account record
// is reconciled.
func (o *Orchestrator) AcceptFederated(ctx context.Context, identity FederatedIdentity, pair *SessionTokenPair) (*SessionTokenPair, error) {
	if identity.Email == "" {
		return nil, goerrors.New("federated identity has no email", goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidCredential).
			WithCode(goerrors.CodeBadRequest)
	}

	fingerprint, err := CredentialFingerprint(identity.Email)
	if err != nil {
		return nil, err
	}

	user, err := o.resolveUser(ctx, CredentialEmail, identity.Email, fingerprint)
	if err != nil {
		return nil, sanitizeBackendErr(err)
	}

	if err := o.applyActivation(ctx, user, MethodOAuth); err != nil {
		return nil, sanitizeBackendErr(err)
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventFederatedLogin,
		UserID:    user.ID.String(),
		Method:    MethodOAuth,
		Metadata: map[string]any{
			"provider": identity.Provider,
			"subject":  identity.Subject,
		},
	})

	return pair, nil
}

// resolveUser upserts the user record for a credential. The record id derives
// from the credential fingerprint so repeated requests converge on one row
// without read-then-write races.
func (o *Orchestrator) resolveUser(ctx context.Context, credType CredentialType, credential, fingerprint string) (*User, error) {
	id, err := uuid.Parse(fingerprint)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "malformed credential fingerprint")
	}

	record := &User{
		ID:       id,
		Username: normalizeCredential(credential),
	}

	switch credType {
	case CredentialEmail:
		record.Email = normalizeCredential(credential)
	case CredentialPhone:
		record.Phone = credential
	}

	return o.repo.Users().GetOrCreate(ctx, record)
}

// checkFingerprint re-derives the fingerprint from the user's stored
// credential for the token's method and compares it to the token. A mismatch
// means the account changed underneath the attempt.
func (o *Orchestrator) checkFingerprint(claims *ProcessClaims, user *User) error {
	credential := o.methodCredential(claims.Method, user)
	if credential == "" {
		return goerrors.New("user has no credential for method", goerrors.CategoryExternal).
			WithTextCode(textCodeBackendFailure)
	}

	fingerprint, err := CredentialFingerprint(credential)
	if err != nil {
		return err
	}

	if fingerprint != claims.CredentialFingerprint {
		return goerrors.New("credential fingerprint mismatch", goerrors.CategoryExternal).
			WithTextCode(textCodeBackendFailure)
	}

	return nil
}

func (o *Orchestrator) methodCredential(method VerificationMethod, user *User) string {
	if user == nil {
		return ""
	}

	switch method {
	case MethodSMSCode:
		return user.Phone
	case MethodEmailCode, MethodOAuth:
		if user.Email != "" {
			return user.Email
		}
		return user.Username
	default:
		if user.Username != "" {
			return user.Username
		}
		return user.Email
	}
}

// applyActivation flips the verified flag for the credential channel and
// promotes pending accounts on their first successful verification.
func (o *Orchestrator) applyActivation(ctx context.Context, user *User, method VerificationMethod) error {
	if err := o.repo.Users().MarkCredentialVerified(ctx, user.ID, method); err != nil {
		if !repository.IsRecordNotFound(err) {
			return err
		}
	}

	if !user.IsPending() {
		return nil
	}

	sm := NewUserStateMachine(o.repo.Users(), WithStateMachineActivitySink(o.activity))
	updated, err := sm.Transition(ctx, ActorRef{ID: "system", Type: "system"}, user, UserStatusActive,
		WithTransitionReason("credential verified"))
	if err != nil {
		return err
	}

	*user = *updated
	return nil
}

func (o *Orchestrator) failVerify(ctx context.Context, claims *ProcessClaims, err error) error {
	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerifyFailure,
		RequestID: claims.RequestID,
		Method:    claims.Method,
	})
	return err
}

func (o *Orchestrator) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := o.activity.Record(ctx, event); err != nil {
		o.logger.Warn("activity sink error: %v", err)
	}
}
