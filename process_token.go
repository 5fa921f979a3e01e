package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultAttemptTTL bounds how long a minted process token stays valid.
const DefaultAttemptTTL = 5 * time.Minute

// ProcessTokenService mints and verifies the signed tokens that carry a
// pending verification attempt across the network boundary. It is stateless
// beyond the signing key, so issue and verify may happen on different
// instances sharing only that key.
type ProcessTokenService struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewProcessTokenService creates a new ProcessTokenService instance.
func NewProcessTokenService(signingKey []byte, issuer string, audience []string, logger Logger) *ProcessTokenService {
	if logger == nil {
		logger = defLogger{}
	}
	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}
	return &ProcessTokenService{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   aud,
		logger:     logger,
	}
}

// Issue signs a process token for one attempt. The zero TTL falls back to
// DefaultAttemptTTL. Issue only fails on serialization or signing errors.
func (s *ProcessTokenService) Issue(claims *ProcessClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}
	if ttl <= 0 {
		ttl = DefaultAttemptTTL
	}

	now := time.Now()
	claims.RegisteredClaims.Issuer = s.issuer
	claims.RegisteredClaims.Audience = s.audience
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.RegisteredClaims.ID == "" {
		claims.RegisteredClaims.ID = uuid.NewString()
	}
	if claims.RegisteredClaims.Subject == "" {
		claims.RegisteredClaims.Subject = claims.RequestID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign process token")
	}

	return signed, nil
}

// Verify parses a token string and returns its claims. The checks run as
// signature, issuer, audience, expiry, short-circuiting on the first failure.
// Every failure collapses into ErrTokenInvalid so callers cannot distinguish
// an expired token from a forged one.
func (s *ProcessTokenService) Verify(tokenString string) (*ProcessClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}
	if len(s.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(s.audience...))
	}
	parserOptions = append(parserOptions, jwt.WithExpirationRequired())

	token, err := jwt.ParseWithClaims(tokenString, &ProcessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("process token verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, goerrors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
			WithTextCode(ErrTokenInvalid.TextCode)
	}

	claims, ok := token.Claims.(*ProcessClaims)
	if !ok || !token.Valid || !claims.wellFormed() {
		s.logger.Error("process token verify could not decode claims")
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
