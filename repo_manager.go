package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	VerificationCodes() VerificationCodes
}

type mngr struct {
	db    *bun.DB
	users Users
	codes VerificationCodes
}

// ManagerOption customizes repository construction.
type ManagerOption func(*mngr)

// WithCodeTTL overrides the verification code TTL used by the code store.
func WithCodeTTL(ttl time.Duration) ManagerOption {
	return func(m *mngr) {
		m.codes = NewVerificationCodesRepository(m.db, ttl)
	}
}

// WithManagerUsersOptions forwards options to the users repository.
func WithManagerUsersOptions(opts ...UsersOption) ManagerOption {
	return func(m *mngr) {
		m.users = NewUsersRepository(m.db, opts...)
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:    db,
		users: NewUsersRepository(db),
		codes: NewVerificationCodesRepository(db, DefaultCodeTTL),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.codes == nil {
		return errors.New("repository verification codes should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) VerificationCodes() VerificationCodes {
	return m.codes
}
