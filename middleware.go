package auth

import (
	"strings"

	"github.com/goliatone/go-router"
)

// GuardConfig configures the process token route guard.
type GuardConfig struct {
	// Tokens verifies raw process tokens. Required.
	Tokens *ProcessTokenService
	// ContextKey is the Locals key the verified claims are stored under.
	// Defaults to "claims".
	ContextKey string
	// Filter skips the guard entirely when it returns true.
	Filter func(router.Context) bool
	// ErrorHandler is invoked when no valid token is present. Defaults to
	// a 401 JSON response.
	ErrorHandler func(router.Context, error) error
}

// ProcessTokenGuard returns a middleware that requires a valid process token
// on the route. The token is read from the Authorization header (Bearer
// scheme) or the "token" query parameter. Verified claims are stored in
// Locals under ContextKey and propagated to the request context so handlers
// can use GetClaims.
func ProcessTokenGuard(cfg GuardConfig) router.MiddlewareFunc {
	if cfg.Tokens == nil {
		panic("auth: ProcessTokenGuard requires a token service")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "claims"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, _ error) error {
			return ctx.JSON(router.StatusUnauthorized, map[string]any{
				"status": OutcomeTokenInvalid,
			})
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw := extractProcessToken(ctx)
			if raw == "" {
				return cfg.ErrorHandler(ctx, ErrTokenInvalid)
			}

			claims, err := cfg.Tokens.Verify(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return hf(ctx)
		}
	}
}

func extractProcessToken(ctx router.Context) string {
	a := ctx.GetString("Authorization", "")
	if len(a) > 7 && strings.EqualFold(a[:7], "Bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ctx.Query("token", "")
}
