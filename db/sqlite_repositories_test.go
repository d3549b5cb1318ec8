package db_test

import (
	"context"
	"testing"
	"time"

	"bookswap/db"
	"bookswap/internal/testutils"
	"bookswap/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteUserRepository(t *testing.T) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	repo := factory.NewUserRepository()
	ctx := context.Background()

	t.Run("CreateAndFind", func(t *testing.T) {
		user := &models.User{Username: "alice", PasswordHash: "$2a$10$hash", CreatedAt: time.Now()}
		require.NoError(t, repo.Create(ctx, user))

		found, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", found.Username)
		assert.Equal(t, "$2a$10$hash", found.PasswordHash)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		user := &models.User{Username: "alice", PasswordHash: "$2a$10$other"}
		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, db.ErrDuplicate)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestSQLiteBookRepository_ConditionalUpdates(t *testing.T) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	userRepo := factory.NewUserRepository()
	testutils.CreateTestUser(t, userRepo, "alice", "pw")

	repo := factory.NewBookRepository()
	ctx := context.Background()

	book := testutils.CreateTestBook(t, repo, "alice", "Dune", "Frank Herbert")

	t.Run("MarkBorrowed", func(t *testing.T) {
		require.NoError(t, repo.MarkBorrowed(ctx, book.ID, "bob"))

		found, err := repo.FindByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookBorrowed, found.Status)
		require.NotNil(t, found.Borrower)
		assert.Equal(t, "bob", *found.Borrower)
	})

	t.Run("SecondMarkBorrowedTouchesNothing", func(t *testing.T) {
		err := repo.MarkBorrowed(ctx, book.ID, "carol")
		assert.ErrorIs(t, err, db.ErrConflict)

		found, err := repo.FindByID(ctx, book.ID)
		require.NoError(t, err)
		require.NotNil(t, found.Borrower)
		assert.Equal(t, "bob", *found.Borrower, "losing writer must not overwrite the borrower")
	})

	t.Run("MarkReturnedByNonBorrower", func(t *testing.T) {
		err := repo.MarkReturned(ctx, book.ID, "carol")
		assert.ErrorIs(t, err, db.ErrConflict)
	})

	t.Run("MarkReturned", func(t *testing.T) {
		require.NoError(t, repo.MarkReturned(ctx, book.ID, "bob"))

		found, err := repo.FindByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookAvailable, found.Status)
		assert.Nil(t, found.Borrower)
	})

	t.Run("MarkReturnedWhenAvailable", func(t *testing.T) {
		err := repo.MarkReturned(ctx, book.ID, "bob")
		assert.ErrorIs(t, err, db.ErrConflict)
	})

	t.Run("MarkBorrowedUnknownID", func(t *testing.T) {
		err := repo.MarkBorrowed(ctx, "no-such-id", "bob")
		assert.ErrorIs(t, err, db.ErrConflict)
	})
}

func TestSQLiteBookRepository_Search(t *testing.T) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	userRepo := factory.NewUserRepository()
	testutils.CreateTestUser(t, userRepo, "alice", "pw")

	repo := factory.NewBookRepository()
	ctx := context.Background()

	testutils.CreateTestBook(t, repo, "alice", "The Hobbit", "J.R.R. Tolkien")
	testutils.CreateTestBook(t, repo, "alice", "Harry Potter", "Rowling")
	percent := testutils.CreateTestBook(t, repo, "alice", "100% Programming", "Anonymous")

	t.Run("EmptyQueryReturnsAllAvailable", func(t *testing.T) {
		books, err := repo.SearchAvailable(ctx, "")
		require.NoError(t, err)
		assert.Len(t, books, 3)
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		books, err := repo.SearchAvailable(ctx, "TOLKIEN")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "The Hobbit", books[0].Title)
	})

	t.Run("WildcardsMatchLiterally", func(t *testing.T) {
		books, err := repo.SearchAvailable(ctx, "100%")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, percent.ID, books[0].ID)

		books, err = repo.SearchAvailable(ctx, "%")
		require.NoError(t, err)
		assert.Len(t, books, 1, "a bare %% must not match everything")
	})
}

func TestSQLiteMessageRepository(t *testing.T) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	defer cleanup()

	userRepo := factory.NewUserRepository()
	testutils.CreateTestUser(t, userRepo, "alice", "pw")

	bookRepo := factory.NewBookRepository()
	book := testutils.CreateTestBook(t, bookRepo, "alice", "Dune", "Frank Herbert")

	repo := factory.NewMessageRepository()
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		msg := &models.Message{BookID: book.ID, Sender: "alice", Recipient: "bob", Text: text}
		require.NoError(t, repo.Create(ctx, msg))
		assert.NotEmpty(t, msg.ID)
	}

	messages, err := repo.FindByBookID(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Text)
	assert.Equal(t, "three", messages[2].Text)

	messages, err = repo.FindByBookID(ctx, "other-book")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
