package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// PasswordBackend proves a credential with a stored password hash and trades
// it for provider tokens through the resource-owner-password grant.
type PasswordBackend struct {
	repo      RepositoryManager
	exchanger TokenExchanger
	logger    Logger
}

var _ Backend = (*PasswordBackend)(nil)

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewPasswordBackend builds the password backend. The exchanger performs the
// provider-side grant after the local hash check passes.
func NewPasswordBackend(repo RepositoryManager, exchanger TokenExchanger, logger Logger) *PasswordBackend {
	if logger == nil {
		logger = defLogger{}
	}
	return &PasswordBackend{
		repo:      repo,
		exchanger: exchanger,
		logger:    logger,
	}
}

// Request has nothing to deliver out of band; the password travels with the
// confirm call.
func (b *PasswordBackend) Request(ctx context.Context, cred Credential) (*RequestOutcome, error) {
	return &RequestOutcome{NeedsSecondFactor: false}, nil
}

// Confirm checks the submitted password against the stored hash, provisioning
// the hash lazily for accounts that never set one, then performs the password
// grant against the provider.
func (b *PasswordBackend) Confirm(ctx context.Context, attempt Attempt) (*ConfirmOutcome, error) {
	user := attempt.User
	if user == nil {
		return nil, goerrors.New("verification attempt has no user", goerrors.CategoryExternal).
			WithTextCode(textCodeBackendFailure)
	}

	password := attempt.Input.Value
	if password == "" {
		return &ConfirmOutcome{Success: false}, nil
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
			WithTextCode(textCodeRateLimited)
	}

	if user.PasswordHash == "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, sanitizeBackendErr(err)
		}
		if err := b.repo.Users().ProvisionPassword(ctx, user.ID, hash); err != nil {
			b.logger.Error("password provisioning failed: %v", err)
			return nil, sanitizeBackendErr(err)
		}
		user.PasswordHash = hash
	} else if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err := b.repo.Users().TrackAttemptedLogin(ctx, user); err != nil {
			b.logger.Warn("failed to track attempted login: %v", err)
		}
		return &ConfirmOutcome{Success: false}, nil
	}

	login := user.Username
	if login == "" {
		login = user.Email
	}

	tokens, err := b.exchanger.PasswordGrant(ctx, login, password)
	if err != nil {
		b.logger.Error("password grant failed: %v", err)
		return nil, sanitizeBackendErr(err)
	}

	if err := b.repo.Users().TrackSucccessfulLogin(ctx, user); err != nil {
		b.logger.Warn("failed to track successful login: %v", err)
	}

	return &ConfirmOutcome{
		Success: true,
		Tokens:  tokens,
	}, nil
}
