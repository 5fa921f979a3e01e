package auth

import (
	"net/mail"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// ValidateCredential checks the syntax of a credential for its declared type.
// Invalid syntax short-circuits the whole request; it never reaches a backend.
func ValidateCredential(credType CredentialType, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrInvalidCredential.WithMetadata(map[string]any{"type": credType})
	}

	switch credType {
	case CredentialEmail:
		return validateEmail(credential)
	case CredentialPhone:
		return validatePhone(credential)
	case CredentialUsername:
		return validateUsername(credential)
	}

	return ErrInvalidCredential.WithMetadata(map[string]any{"type": credType})
}

func validateEmail(credential string) error {
	if err := validation.Validate(credential, validation.Required, is.Email); err != nil {
		return ErrInvalidCredential.WithMetadata(map[string]any{"type": CredentialEmail})
	}

	// ozzo accepts a few shapes net/mail rejects; require both to pass
	addr, err := mail.ParseAddress(credential)
	if err != nil || addr.Address != credential {
		return ErrInvalidCredential.WithMetadata(map[string]any{"type": CredentialEmail})
	}

	return nil
}

func validatePhone(credential string) error {
	parsed, err := phonenumbers.Parse(credential, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ErrInvalidCredential.WithMetadata(map[string]any{"type": CredentialPhone})
	}
	return nil
}

func validateUsername(credential string) error {
	if !usernamePattern.MatchString(strings.ToLower(credential)) {
		return ErrInvalidCredential.WithMetadata(map[string]any{"type": CredentialUsername})
	}
	return nil
}

// NormalizePhone returns the E.164 form used for storage and owner keys.
func NormalizePhone(credential string) (string, error) {
	parsed, err := phonenumbers.Parse(credential, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidCredential.WithMetadata(map[string]any{"type": CredentialPhone})
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func isEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}
