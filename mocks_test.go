package auth_test

import (
	"context"
	"time"

	auth "github.com/goliatone/go-marketplace-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCredentialStore implements auth.Users, so the authenticator sees the
// full durable store surface including login bookkeeping.
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) FindByEmailOrUsername(ctx context.Context, email, username string) (*auth.User, error) {
	args := m.Called(ctx, email, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) FindByRole(ctx context.Context, role auth.UserRole) (*auth.User, error) {
	args := m.Called(ctx, role)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) Create(ctx context.Context, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockCredentialStore) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// testConfig is a plain auth.Config for wiring authenticators in tests.
type testConfig struct {
	storeTimeout time.Duration
}

func (testConfig) GetSigningKey() string     { return "test-signing-key" }
func (testConfig) GetContextKey() string     { return "user" }
func (testConfig) GetAuthScheme() string     { return "Bearer" }
func (testConfig) GetTokenExpiration() int   { return 720 }
func (testConfig) GetIssuer() string         { return "test-issuer" }
func (testConfig) GetAudience() []string     { return []string{"test:audience"} }
func (c testConfig) GetStoreTimeout() time.Duration {
	if c.storeTimeout > 0 {
		return c.storeTimeout
	}
	return 3 * time.Second
}
