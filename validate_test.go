package auth_test

import (
	"testing"

	"github.com/goliatone/go-authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name       string
		credType   auth.CredentialType
		credential string
		valid      bool
	}{
		{"valid email", auth.CredentialEmail, "user@example.com", true},
		{"email with subdomain", auth.CredentialEmail, "user@mail.example.co.uk", true},
		{"email missing domain", auth.CredentialEmail, "user@", false},
		{"email missing local part", auth.CredentialEmail, "@example.com", false},
		{"email with display name", auth.CredentialEmail, "User <user@example.com>", false},
		{"empty email", auth.CredentialEmail, "", false},
		{"valid us phone", auth.CredentialPhone, "+14155552671", true},
		{"valid uk phone", auth.CredentialPhone, "+442071838750", true},
		{"phone without country code", auth.CredentialPhone, "5551234", false},
		{"phone too long", auth.CredentialPhone, "+1415555267189012345", false},
		{"valid username", auth.CredentialUsername, "pepe_rone", true},
		{"username with dots", auth.CredentialUsername, "pepe.rone-2", true},
		{"username too short", auth.CredentialUsername, "ab", false},
		{"username with spaces", auth.CredentialUsername, "pepe rone", false},
		{"unknown type", auth.CredentialType("passport"), "X123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateCredential(tt.credType, tt.credential)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, auth.IsInvalidCredential(err))
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	normalized, err := auth.NormalizePhone("+1 (415) 555-2671")
	require.NoError(t, err)
	assert.Equal(t, "+14155552671", normalized)

	_, err = auth.NormalizePhone("not a phone")
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestCredentialFingerprintIsDeterministic(t *testing.T) {
	a, err := auth.CredentialFingerprint("User@Example.com")
	require.NoError(t, err)
	b, err := auth.CredentialFingerprint("  user@example.com ")
	require.NoError(t, err)
	c, err := auth.CredentialFingerprint("other@example.com")
	require.NoError(t, err)

	assert.Equal(t, a, b, "case and whitespace must not change the fingerprint")
	assert.NotEqual(t, a, c)
}

func TestOwnerKeySeparatesMethods(t *testing.T) {
	email, err := auth.OwnerKey(auth.MethodEmailCode, "user@example.com")
	require.NoError(t, err)
	sms, err := auth.OwnerKey(auth.MethodSMSCode, "user@example.com")
	require.NoError(t, err)
	again, err := auth.OwnerKey(auth.MethodEmailCode, "USER@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, email, sms)
	assert.Equal(t, email, again)
}
