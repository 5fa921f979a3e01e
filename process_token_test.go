package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(key string) *auth.ProcessTokenService {
	return auth.NewProcessTokenService([]byte(key), "authflow-test", []string{"api"}, nil)
}

func TestProcessTokenIssueAndVerify(t *testing.T) {
	svc := newTokenService("test-signing-key")

	claims := &auth.ProcessClaims{
		RequestID:             uuid.NewString(),
		Method:                auth.MethodEmailCode,
		CredentialFingerprint: uuid.NewString(),
	}

	token, err := svc.Issue(claims, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, claims.RequestID, decoded.RequestID)
	assert.Equal(t, auth.MethodEmailCode, decoded.Method)
	assert.Equal(t, claims.CredentialFingerprint, decoded.CredentialFingerprint)
	assert.False(t, decoded.Expires().IsZero())
	assert.False(t, decoded.Issued().IsZero())
}

func TestProcessTokenVerifyAcrossInstancesSharingKey(t *testing.T) {
	issuer := newTokenService("shared-key")
	verifier := newTokenService("shared-key")

	token, err := issuer.Issue(&auth.ProcessClaims{
		RequestID:             uuid.NewString(),
		Method:                auth.MethodPassword,
		CredentialFingerprint: uuid.NewString(),
	}, 0)
	require.NoError(t, err)

	decoded, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, auth.MethodPassword, decoded.Method)
}

func TestProcessTokenVerifyRejectsWrongKey(t *testing.T) {
	issuer := newTokenService("key-one")
	verifier := newTokenService("key-two")

	token, err := issuer.Issue(&auth.ProcessClaims{
		RequestID:             uuid.NewString(),
		Method:                auth.MethodEmailCode,
		CredentialFingerprint: uuid.NewString(),
	}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, auth.IsTokenInvalid(err))
}

func TestProcessTokenVerifyRejectsExpired(t *testing.T) {
	svc := newTokenService("test-signing-key")

	// Sign an already-expired token with the right key directly; Issue always
	// stamps a future expiry.
	now := time.Now()
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.ProcessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "authflow-test",
			Audience:  jwt.ClaimStrings{"api"},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
		RequestID:             uuid.NewString(),
		Method:                auth.MethodEmailCode,
		CredentialFingerprint: uuid.NewString(),
	})
	token, err := expired.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, auth.IsTokenInvalid(err))
}

func TestProcessTokenVerifyRejectsGarbage(t *testing.T) {
	svc := newTokenService("test-signing-key")

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Verify(tokenString)
		require.Error(t, err)
		assert.True(t, auth.IsTokenInvalid(err))
	}
}

func TestProcessTokenVerifyRejectsMalformedClaims(t *testing.T) {
	svc := newTokenService("test-signing-key")

	// A token missing its fingerprint never verifies even with a good signature.
	token, err := svc.Issue(&auth.ProcessClaims{
		RequestID: uuid.NewString(),
		Method:    auth.MethodEmailCode,
	}, time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, auth.IsTokenInvalid(err))
}
