package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
)

// Outcome is the closed set of statuses that crosses the HTTP boundary.
// Nothing else about a failure is exposed.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeInvalidCredential Outcome = "invalid_credential"
	OutcomeFailure           Outcome = "failure"
	OutcomeTokenInvalid      Outcome = "token_invalid"
	OutcomeRateLimited       Outcome = "rate_limited"
	OutcomeTimedOut          Outcome = "timed_out"
	OutcomeCancelled         Outcome = "cancelled"
)

// AuthorizeURLBuilder resolves a provider name into its authorization URL.
// federated.Registry satisfies it.
type AuthorizeURLBuilder interface {
	AuthorizeURL(provider string) (string, error)
}

// CallerKeyFunc extracts the rate-limit key for a request, typically the
// client address. A nil func falls back to the credential fingerprint.
type CallerKeyFunc func(c router.Context) string

// AuthController exposes the orchestrator over HTTP.
type AuthController struct {
	Logger    Logger
	Auth      *Orchestrator
	OAuth     AuthorizeURLBuilder
	CallerKey CallerKeyFunc
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerOAuth wires the federated authorize-URL builder.
func WithControllerOAuth(oauth AuthorizeURLBuilder) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.OAuth = oauth
		return c
	}
}

// WithControllerCallerKey sets the rate-limit key extractor.
func WithControllerCallerKey(fn CallerKeyFunc) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.CallerKey = fn
		return c
	}
}

func NewAuthController(orchestrator *Orchestrator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Auth:   orchestrator,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("Missing Orchestrator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the verification API on the router.
func RegisterAuthRoutes[T any](app router.Router[T], orchestrator *Orchestrator, opts ...AuthControllerOption) {
	controller := NewAuthController(orchestrator, opts...)

	app.
		Post("/api/auth/:credentialType/request", controller.RequestVerification).
		SetName("auth-request.post")

	app.
		Post("/api/auth/:credentialType/verify", controller.ConfirmVerification).
		SetName("auth-verify.post")

	app.
		Get("/api/oauth", controller.OAuthEntry).
		SetName("oauth-entry.get")
}

// RequestVerificationPayload is the request body for the request endpoint.
type RequestVerificationPayload struct {
	Credential string `form:"credential" json:"credential"`
	Method     string `form:"method" json:"method,omitempty"`
	Dry        bool   `form:"dry" json:"dry,omitempty"`
}

// Validate will run validation rules
func (r RequestVerificationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Credential, validation.Required, validation.Length(1, 200)),
	)
}

type requestResponse struct {
	Status    Outcome `json:"status"`
	Token     string  `json:"token,omitempty"`
	OTPNeeded bool    `json:"otp_needed,omitempty"`
}

// RequestVerification handles POST /api/auth/:credentialType/request.
func (a *AuthController) RequestVerification(ctx router.Context) error {
	credType, ok := ParseCredentialType(ctx.Param("credentialType", ""))
	if !ok {
		return ctx.JSON(router.StatusBadRequest, requestResponse{Status: OutcomeInvalidCredential})
	}

	payload := new(RequestVerificationPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("request verification parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, requestResponse{Status: OutcomeInvalidCredential})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, requestResponse{Status: OutcomeInvalidCredential})
	}

	method, ok := a.resolveMethod(credType, payload.Method)
	if !ok {
		return ctx.JSON(router.StatusBadRequest, requestResponse{Status: OutcomeInvalidCredential})
	}

	opts := []RequestOption{}
	if payload.Dry {
		opts = append(opts, WithDryRun())
	}
	if a.CallerKey != nil {
		if key := a.CallerKey(ctx); key != "" {
			opts = append(opts, WithCallerKey(key))
		}
	}

	result, err := a.Auth.Request(ctx.Context(), credType, method, payload.Credential, opts...)
	if err != nil {
		status, outcome := outcomeForErr(err)
		return ctx.JSON(status, requestResponse{Status: outcome})
	}

	return ctx.JSON(router.StatusOK, requestResponse{
		Status:    OutcomeSuccess,
		Token:     result.Token,
		OTPNeeded: result.OTPNeeded,
	})
}

// ConfirmVerificationPayload is the request body for the verify endpoint.
type ConfirmVerificationPayload struct {
	Verification VerificationInput `form:"verification" json:"verification"`
}

type verifyResponse struct {
	Status       Outcome `json:"status"`
	AccessToken  string  `json:"access_token,omitempty"`
	RefreshToken string  `json:"refresh_token,omitempty"`
}

// ConfirmVerification handles POST /api/auth/:credentialType/verify?token=...
func (a *AuthController) ConfirmVerification(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return ctx.JSON(router.StatusUnauthorized, verifyResponse{Status: OutcomeTokenInvalid})
	}

	payload := new(ConfirmVerificationPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("confirm verification parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, verifyResponse{Status: OutcomeFailure})
	}

	pair, err := a.Auth.Verify(ctx.Context(), token, payload.Verification)
	if err != nil {
		status, outcome := outcomeForErr(err)
		return ctx.JSON(status, verifyResponse{Status: outcome})
	}

	return ctx.JSON(router.StatusOK, verifyResponse{
		Status:       OutcomeSuccess,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// OAuthEntry handles GET /api/oauth?provider=<name>, bouncing the client into
// the provider's authorize endpoint.
func (a *AuthController) OAuthEntry(ctx router.Context) error {
	if a.OAuth == nil {
		return ctx.JSON(http.StatusNotFound, verifyResponse{Status: OutcomeFailure})
	}

	provider := ctx.Query("provider", "")
	if provider == "" {
		return ctx.JSON(router.StatusBadRequest, verifyResponse{Status: OutcomeInvalidCredential})
	}

	authorizeURL, err := a.OAuth.AuthorizeURL(provider)
	if err != nil {
		a.Logger.Error("authorize url for provider %s: %v", provider, err)
		return ctx.JSON(router.StatusBadRequest, verifyResponse{Status: OutcomeFailure})
	}

	return ctx.Redirect(authorizeURL, router.StatusSeeOther)
}

// resolveMethod picks the verification method for a request: an explicit
// method from the body wins, otherwise the credential type implies one.
func (a *AuthController) resolveMethod(credType CredentialType, raw string) (VerificationMethod, bool) {
	if raw != "" {
		return ParseVerificationMethod(raw)
	}

	switch credType {
	case CredentialEmail:
		return MethodEmailCode, true
	case CredentialPhone:
		return MethodSMSCode, true
	case CredentialUsername:
		return MethodPassword, true
	}
	return "", false
}

// outcomeForErr collapses an orchestrator error onto the closed outcome set.
func outcomeForErr(err error) (int, Outcome) {
	switch {
	case IsInvalidCredential(err):
		return router.StatusBadRequest, OutcomeInvalidCredential
	case IsTokenInvalid(err):
		return router.StatusUnauthorized, OutcomeTokenInvalid
	case IsRateLimited(err):
		return http.StatusTooManyRequests, OutcomeRateLimited
	case IsTimedOut(err):
		return http.StatusGatewayTimeout, OutcomeTimedOut
	case IsCancelled(err):
		return http.StatusConflict, OutcomeCancelled
	default:
		return http.StatusBadGateway, OutcomeFailure
	}
}
