package testutils

import (
	"context"
	"testing"
	"time"

	"bookswap/db"
	"bookswap/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// CreateTestUser registers a user directly against the repository. The hash
// is a real bcrypt hash so authentication flows work in tests.
func CreateTestUser(t *testing.T, repo db.UserRepository, username, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func CreateTestBook(t *testing.T, repo db.BookRepository, owner, title, author string) *models.Book {
	book := &models.Book{
		Title:  title,
		Author: author,
		Owner:  owner,
		Status: models.BookAvailable,
	}

	created, err := repo.Create(context.Background(), book)
	require.NoError(t, err)
	return created
}
