package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell/auth"
)

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestUser(t *testing.T, status auth.UserStatus) *auth.User {
	t.Helper()
	return &auth.User{
		ID:           uuid.New(),
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: hashForTest(t, "password123"),
		Role:         auth.RoleUser,
		Status:       status,
	}
}

func newSessionManager(t *testing.T, users auth.UserStore, refresh auth.RefreshTokenStore) *auth.SessionManager {
	t.Helper()
	cfg := newTestConfig()
	tokens, err := auth.NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), nil)
	require.NoError(t, err)
	return auth.NewSessionManager(users, refresh, tokens, cfg)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login issues both tokens", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)
		sink := &CapturingSink{}

		users.On("GetByUsername", ctx, "testuser").Return(user, nil).Once()
		refresh.On("GetByUser", ctx, user.ID).Return(nil, repository.NewRecordNotFound()).Once()
		refresh.On("SaveForUser", ctx, mock.AnythingOfType("*auth.RefreshToken")).
			Return(nil, nil).Once()

		manager := newSessionManager(t, users, refresh).WithActivitySink(sink)

		result, err := manager.Login(ctx, "testuser", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, user, result.User)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, auth.ActivityEventLoginSuccess, events[0].EventType)

		users.AssertExpectations(t)
		refresh.AssertExpectations(t)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		users.On("GetByUsername", ctx, "ghost").Return(nil, repository.NewRecordNotFound()).Once()
		users.On("GetByUsername", ctx, "testuser").Return(user, nil).Once()

		manager := newSessionManager(t, users, refresh)

		_, unknownErr := manager.Login(ctx, "ghost", "password123")
		_, mismatchErr := manager.Login(ctx, "testuser", "wrong-password")

		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, mismatchErr, auth.ErrInvalidCredentials)
		assert.Equal(t, unknownErr, mismatchErr)
	})

	t.Run("login blocked for non active statuses", func(t *testing.T) {
		for _, status := range []auth.UserStatus{
			auth.UserStatusPending,
			auth.UserStatusInactive,
			auth.UserStatusSuspended,
		} {
			t.Run(string(status), func(t *testing.T) {
				user := newTestUser(t, status)
				users := new(MockUserStore)
				refresh := new(MockRefreshTokenStore)

				users.On("GetByUsername", ctx, "testuser").Return(user, nil).Once()

				manager := newSessionManager(t, users, refresh)

				_, err := manager.Login(ctx, "testuser", "password123")
				assert.ErrorIs(t, err, auth.ErrAccountNotUsable)
			})
		}
	})

	t.Run("second login reuses live refresh token", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		existing := &auth.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     "live-refresh-token",
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}

		users.On("GetByUsername", ctx, "testuser").Return(user, nil).Once()
		refresh.On("GetByUser", ctx, user.ID).Return(existing, nil).Once()

		manager := newSessionManager(t, users, refresh)

		result, err := manager.Login(ctx, "testuser", "password123")
		require.NoError(t, err)
		assert.Equal(t, "live-refresh-token", result.RefreshToken)

		refresh.AssertNotCalled(t, "SaveForUser", mock.Anything, mock.Anything)
	})

	t.Run("expired refresh token is replaced on login", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		expired := &auth.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     "stale-refresh-token",
			ExpiresAt: time.Now().Add(-time.Hour),
		}

		users.On("GetByUsername", ctx, "testuser").Return(user, nil).Once()
		refresh.On("GetByUser", ctx, user.ID).Return(expired, nil).Once()

		var saved *auth.RefreshToken
		refresh.On("SaveForUser", ctx, mock.AnythingOfType("*auth.RefreshToken")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*auth.RefreshToken)
			}).
			Return(nil, nil).Once()

		manager := newSessionManager(t, users, refresh)

		result, err := manager.Login(ctx, "testuser", "password123")
		require.NoError(t, err)
		require.NotNil(t, saved)

		assert.NotEqual(t, "stale-refresh-token", result.RefreshToken)
		assert.Equal(t, expired.ID, saved.ID)
		assert.Equal(t, user.ID, saved.UserID)
		assert.True(t, saved.ExpiresAt.After(time.Now()))
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("valid refresh echoes the same refresh token", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		record := &auth.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     "live-refresh-token",
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}

		refresh.On("GetByToken", ctx, "live-refresh-token").Return(record, nil).Once()
		users.On("GetByUserID", ctx, user.ID).Return(user, nil).Once()

		manager := newSessionManager(t, users, refresh)

		pair, err := manager.Refresh(ctx, "live-refresh-token")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.Equal(t, "live-refresh-token", pair.RefreshToken)

		refresh.AssertNotCalled(t, "SaveForUser", mock.Anything, mock.Anything)
		refresh.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		refresh.On("GetByToken", ctx, "missing").Return(nil, repository.NewRecordNotFound()).Once()

		manager := newSessionManager(t, users, refresh)

		_, err := manager.Refresh(ctx, "missing")
		assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	})

	t.Run("expired refresh token is deleted on presentation", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)
		sink := &CapturingSink{}

		record := &auth.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     "stale-refresh-token",
			ExpiresAt: time.Now().Add(-time.Minute),
		}

		refresh.On("GetByToken", ctx, "stale-refresh-token").Return(record, nil).Once()
		refresh.On("Delete", ctx, record).Return(nil).Once()

		manager := newSessionManager(t, users, refresh).WithActivitySink(sink)

		_, err := manager.Refresh(ctx, "stale-refresh-token")
		assert.ErrorIs(t, err, auth.ErrRefreshTokenExpired)

		refresh.AssertExpectations(t)
		users.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, auth.ActivityEventTokenRefreshFailure, events[0].EventType)
	})

	t.Run("principal deleted after issuance", func(t *testing.T) {
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		userID := uuid.New()
		record := &auth.RefreshToken{
			ID:        uuid.New(),
			UserID:    userID,
			Token:     "orphan-refresh-token",
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}

		refresh.On("GetByToken", ctx, "orphan-refresh-token").Return(record, nil).Once()
		users.On("GetByUserID", ctx, userID).Return(nil, repository.NewRecordNotFound()).Once()

		manager := newSessionManager(t, users, refresh)

		_, err := manager.Refresh(ctx, "orphan-refresh-token")
		assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
	})

	t.Run("boundary instant counts as expired", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		record := &auth.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     "edge-refresh-token",
			ExpiresAt: expiry,
		}

		refresh.On("GetByToken", ctx, "edge-refresh-token").Return(record, nil).Once()
		refresh.On("Delete", ctx, record).Return(nil).Once()

		manager := newSessionManager(t, users, refresh).
			WithClock(func() time.Time { return expiry })

		_, err := manager.Refresh(ctx, "edge-refresh-token")
		assert.ErrorIs(t, err, auth.ErrRefreshTokenExpired)
	})
}

func TestIssueAccessTokenForUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("mints an access token for a known username", func(t *testing.T) {
		user := newTestUser(t, auth.UserStatusActive)
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		users.On("GetByUsername", ctx, "testuser").Return(user, nil).Once()

		cfg := newTestConfig()
		tokens, err := auth.NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), nil)
		require.NoError(t, err)

		manager := auth.NewSessionManager(users, refresh, tokens, cfg)

		token, err := manager.IssueAccessTokenForUsername(ctx, "testuser")
		require.NoError(t, err)

		claims, err := tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject())
	})

	t.Run("unknown username", func(t *testing.T) {
		users := new(MockUserStore)
		refresh := new(MockRefreshTokenStore)

		users.On("GetByUsername", ctx, "ghost").Return(nil, repository.NewRecordNotFound()).Once()

		manager := newSessionManager(t, users, refresh)

		_, err := manager.IssueAccessTokenForUsername(ctx, "ghost")
		assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
	})
}
