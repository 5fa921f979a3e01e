package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// CodeBackend proves a credential through a short numeric code delivered out
// of band. The same implementation serves email and SMS; only the sender and
// the method differ.
type CodeBackend struct {
	method VerificationMethod
	codes  VerificationCodes
	sender CodeSender
	logger Logger
}

var _ Backend = (*CodeBackend)(nil)

// NewCodeBackend builds a code backend for the given method. The sender is
// the out-of-band delivery channel; a nil sender generates codes without
// delivering them, which is only useful in tests.
func NewCodeBackend(method VerificationMethod, codes VerificationCodes, sender CodeSender, logger Logger) *CodeBackend {
	if logger == nil {
		logger = defLogger{}
	}
	return &CodeBackend{
		method: method,
		codes:  codes,
		sender: sender,
		logger: logger,
	}
}

// Request generates (or re-reads) the owner's code and hands it to the
// sender. Repeat requests within the TTL redeliver the same code.
func (b *CodeBackend) Request(ctx context.Context, cred Credential) (*RequestOutcome, error) {
	owner, err := OwnerKey(b.method, cred.Value)
	if err != nil {
		return nil, sanitizeBackendErr(err)
	}

	code, err := b.codes.QueryOrGenerate(ctx, owner)
	if err != nil {
		b.logger.Error("code generation failed for %s: %v", b.method, err)
		return nil, sanitizeBackendErr(err)
	}

	if b.sender != nil {
		if err := b.sender.Send(ctx, cred.Value, code); err != nil {
			b.logger.Error("code delivery failed for %s: %v", b.method, err)
			return nil, sanitizeBackendErr(err)
		}
	}

	return &RequestOutcome{NeedsSecondFactor: false}, nil
}

// Confirm checks the submitted code against the store. A match consumes the
// code; a mismatch leaves it for retry within the TTL.
func (b *CodeBackend) Confirm(ctx context.Context, attempt Attempt) (*ConfirmOutcome, error) {
	credential, err := b.ownerCredential(attempt.User)
	if err != nil {
		return nil, err
	}

	owner, err := OwnerKey(b.method, credential)
	if err != nil {
		return nil, sanitizeBackendErr(err)
	}

	ok, err := b.codes.Verify(ctx, owner, attempt.Input.Value)
	if err != nil {
		b.logger.Error("code verification failed for %s: %v", b.method, err)
		return nil, sanitizeBackendErr(err)
	}

	return &ConfirmOutcome{Success: ok}, nil
}

// ownerCredential picks the user's stored credential for this method so the
// confirm-time owner key matches the one derived at request time.
func (b *CodeBackend) ownerCredential(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("verification attempt has no user", goerrors.CategoryExternal).
			WithTextCode(textCodeBackendFailure)
	}

	var credential string
	switch b.method {
	case MethodSMSCode:
		credential = user.Phone
	default:
		credential = user.Email
	}

	if credential == "" {
		return "", goerrors.New("user has no credential for method", goerrors.CategoryExternal).
			WithTextCode(textCodeBackendFailure)
	}

	return credential, nil
}
