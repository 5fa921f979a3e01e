package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProcessClaims is the payload of a process token: one pending verification
// attempt, self-contained so no server-side session has to exist.
type ProcessClaims struct {
	jwt.RegisteredClaims
	RequestID             string             `json:"rid"`
	Method                VerificationMethod `json:"vm"`
	CredentialFingerprint string             `json:"cfp"`
}

// Valid claims decode to exactly one method and one fingerprint; tokens are
// single purpose and not renewable.
func (c *ProcessClaims) wellFormed() bool {
	if c.RequestID == "" || c.CredentialFingerprint == "" {
		return false
	}
	_, ok := ParseVerificationMethod(string(c.Method))
	return ok
}

// Expires returns the expiration time of the attempt.
func (c *ProcessClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issuance time of the attempt.
func (c *ProcessClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
