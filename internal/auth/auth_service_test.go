package auth_test

import (
	"context"
	"testing"

	"bookswap/internal/auth"
	"bookswap/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService(t *testing.T) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	userRepo := factory.NewUserRepository()
	service := auth.NewAuthService(userRepo)
	ctx := context.Background()

	t.Run("RegisterAndAuthenticate", func(t *testing.T) {
		require.NoError(t, service.Register(ctx, "alice", "s3cret"))

		user, err := service.Authenticate(ctx, "alice", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("PasswordIsHashed", func(t *testing.T) {
		require.NoError(t, service.Register(ctx, "hasher", "plaintext"))

		user, err := userRepo.FindByUsername(ctx, "hasher")
		require.NoError(t, err)
		assert.NotEqual(t, "plaintext", user.PasswordHash)
		assert.NotContains(t, user.PasswordHash, "plaintext")
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		require.NoError(t, service.Register(ctx, "bob", "first"))

		err := service.Register(ctx, "bob", "second")
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)

		// The original password still works
		_, err = service.Authenticate(ctx, "bob", "first")
		assert.NoError(t, err)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		require.NoError(t, service.Register(ctx, "carol", "right"))

		_, err := service.Authenticate(ctx, "carol", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "nobody", "anything")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}
