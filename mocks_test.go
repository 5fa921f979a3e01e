package auth_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-authflow"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers mocks the Users store. The embedded repository interface covers
// the generic CRUD surface; calls outside the mocked methods panic.
type MockUsers struct {
	mock.Mock
	repository.Repository[*auth.User]
}

var _ auth.Users = (*MockUsers)(nil)

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSucccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSucccessfulLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) GetOrCreate(ctx context.Context, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, record, criteria)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status auth.UserStatus, opts ...auth.StatusUpdateOption) (*auth.User, error) {
	args := m.Called(ctx, id, status, opts)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status auth.UserStatus, opts ...auth.StatusUpdateOption) (*auth.User, error) {
	args := m.Called(ctx, tx, id, status, opts)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) Suspend(ctx context.Context, actor auth.ActorRef, user *auth.User, opts ...auth.TransitionOption) (*auth.User, error) {
	args := m.Called(ctx, actor, user, opts)
	updated, _ := args.Get(0).(*auth.User)
	return updated, args.Error(1)
}

func (m *MockUsers) Reinstate(ctx context.Context, actor auth.ActorRef, user *auth.User, opts ...auth.TransitionOption) (*auth.User, error) {
	args := m.Called(ctx, actor, user, opts)
	updated, _ := args.Get(0).(*auth.User)
	return updated, args.Error(1)
}

func (m *MockUsers) MarkCredentialVerified(ctx context.Context, id uuid.UUID, method auth.VerificationMethod) error {
	args := m.Called(ctx, id, method)
	return args.Error(0)
}

func (m *MockUsers) MarkCredentialVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, method auth.VerificationMethod) error {
	args := m.Called(ctx, tx, id, method)
	return args.Error(0)
}

func (m *MockUsers) ProvisionPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) ProvisionPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

// MockActivitySink records activity events through testify expectations.
type MockActivitySink struct {
	mock.Mock
}

var _ auth.ActivitySink = (*MockActivitySink)(nil)

func (m *MockActivitySink) Record(ctx context.Context, event auth.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
