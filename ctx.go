package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the ProcessClaims in the given context
func WithClaimsContext(r context.Context, claims *ProcessClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the ProcessClaims from the standard context
func GetClaims(ctx context.Context) (*ProcessClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*ProcessClaims)
	return raw, ok
}

// GetRouterClaims extracts the ProcessClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (*ProcessClaims, bool) {
	if key == "" {
		key = "claims" // Default key used by the token guard middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*ProcessClaims)
	return claims, ok
}
