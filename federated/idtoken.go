package federated

import (
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// VerifiedClaims is what a validated ID token reduces to: an identity the
// orchestrator can accept without running request/confirm.
type VerifiedClaims struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// IDTokenValidator checks provider ID tokens against the provider's JWKS.
type IDTokenValidator struct {
	provider *Provider
	jwks     *keyfunc.JWKS
}

// NewIDTokenValidator fetches the provider's key set and keeps it refreshed
// in the background.
func NewIDTokenValidator(provider *Provider) (*IDTokenValidator, error) {
	if provider.JWKSURL() == "" {
		return nil, ErrProviderNotFound.Clone().
			WithMetadata(map[string]any{
				"provider": provider.Name(),
				"reason":   "provider issues no id tokens",
			})
	}

	jwks, err := keyfunc.Get(provider.JWKSURL(), keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		clone := ErrIDTokenInvalid.Clone()
		clone.Source = err
		return nil, clone
	}

	return &IDTokenValidator{
		provider: provider,
		jwks:     jwks,
	}, nil
}

// Validate checks signature, issuer, audience, and expiry, and requires the
// provider-side email to be verified.
func (v *IDTokenValidator) Validate(tokenString string) (*VerifiedClaims, error) {
	claims := &idTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithIssuer(v.provider.Issuer()),
		jwt.WithAudience(v.provider.config.ClientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		clone := ErrIDTokenInvalid.Clone()
		clone.Source = err
		return nil, clone.WithMetadata(map[string]any{"provider": v.provider.Name()})
	}

	if !claims.EmailVerified {
		return nil, ErrEmailNotVerified.Clone().
			WithMetadata(map[string]any{"provider": v.provider.Name()})
	}

	return &VerifiedClaims{
		Provider:      v.provider.Name(),
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// Shutdown stops the background key refresh.
func (v *IDTokenValidator) Shutdown() {
	v.jwks.EndBackground()
}
