package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/inkwell/auth"
)

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) GetByUserID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRefreshTokenStore implements auth.RefreshTokenStore
type MockRefreshTokenStore struct {
	mock.Mock
}

func (m *MockRefreshTokenStore) GetByUser(ctx context.Context, userID uuid.UUID) (*auth.RefreshToken, error) {
	args := m.Called(ctx, userID)
	if r := args.Get(0); r != nil {
		return r.(*auth.RefreshToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRefreshTokenStore) GetByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	args := m.Called(ctx, token)
	if r := args.Get(0); r != nil {
		return r.(*auth.RefreshToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRefreshTokenStore) SaveForUser(ctx context.Context, record *auth.RefreshToken) (*auth.RefreshToken, error) {
	args := m.Called(ctx, record)
	if r := args.Get(0); r != nil {
		return r.(*auth.RefreshToken), args.Error(1)
	}
	return record, args.Error(1)
}

func (m *MockRefreshTokenStore) Delete(ctx context.Context, record *auth.RefreshToken) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// CapturingSink records every activity event it sees.
type CapturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *CapturingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *CapturingSink) Events() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// testConfig implements auth.Config
type testConfig struct {
	signingKey string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey: "0123456789abcdef0123456789abcdef",
		issuer:     "test-issuer",
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
	}
}

func (c testConfig) GetSigningKey() string             { return c.signingKey }
func (c testConfig) GetIssuer() string                 { return c.issuer }
func (c testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
