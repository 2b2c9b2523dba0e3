package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/auth"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	tokens, err := auth.NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), nil)
	require.NoError(t, err)

	t.Run("empty credential", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		_, err := resolver.Resolve(ctx, "   ")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("garbage credential collapses to invalid", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		_, err := resolver.Resolve(ctx, "not-a-token")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("expired credential stays distinct", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		token, err := tokens.Issue(uuid.New().String(), time.Now().Add(-2*time.Hour), time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("bad signature collapses to invalid", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		other, err := auth.NewTokenService([]byte("another-signing-key-of-32-bytes!"), cfg.GetIssuer(), nil)
		require.NoError(t, err)

		token, err := other.Issue(uuid.New().String(), time.Now(), time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("subject that is not a principal id", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		token, err := tokens.Issue("not-a-uuid", time.Now(), time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("principal deleted after issuance", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		id := uuid.New()
		users.On("GetByUserID", ctx, id).Return(nil, repository.NewRecordNotFound()).Once()

		token, err := tokens.Issue(id.String(), time.Now(), time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
	})

	t.Run("resolution reflects the current record", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		user := newTestUser(t, auth.UserStatusActive)
		token, err := tokens.Issue(user.ID.String(), time.Now(), time.Hour)
		require.NoError(t, err)

		// Role changed between issuance and resolution; the resolved
		// principal carries the new role even though the token predates it.
		user.Role = auth.RoleAdmin
		users.On("GetByUserID", ctx, user.ID).Return(user, nil).Once()

		resolved, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, resolved.Role)
		assert.Equal(t, user.ID, resolved.ID)
	})

	t.Run("resolve identity wraps the principal", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		user := newTestUser(t, auth.UserStatusActive)
		token, err := tokens.Issue(user.ID.String(), time.Now(), time.Hour)
		require.NoError(t, err)

		users.On("GetByUserID", ctx, user.ID).Return(user, nil).Once()

		identity, err := resolver.ResolveIdentity(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, user.Username, identity.Username())
		assert.Equal(t, user.Email, identity.Email())
		assert.Equal(t, string(user.Role), identity.Role())
	})

	t.Run("resolve identity propagates failures", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		identity, err := resolver.ResolveIdentity(ctx, "not-a-token")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
		assert.Nil(t, identity)
	})

	t.Run("legacy record without status resolves as active", func(t *testing.T) {
		users := new(MockUserStore)
		resolver := auth.NewPrincipalResolver(users, tokens)

		user := newTestUser(t, "")
		token, err := tokens.Issue(user.ID.String(), time.Now(), time.Hour)
		require.NoError(t, err)

		users.On("GetByUserID", ctx, user.ID).Return(user, nil).Once()

		resolved, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, auth.UserStatusActive, resolved.Status)
	})
}
