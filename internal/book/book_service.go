package book

import (
	"context"
	"errors"
	"fmt"

	"bookswap/db"
	"bookswap/models"
)

var (
	ErrNotFound        = errors.New("book not found")
	ErrSelfBorrow      = errors.New("cannot borrow your own book")
	ErrAlreadyBorrowed = errors.New("book is already borrowed")
	ErrNotBorrower     = errors.New("book is not borrowed by this user")
)

// BookService owns the book lifecycle: posting, searching and the
// available/borrowed state machine. State transitions go through the
// repository's conditional updates; the service never does read-then-write.
type BookService struct {
	repo      db.BookRepository
	dbManager *db.DBManager
}

// NewBookService creates a new BookService
func NewBookService(repo db.BookRepository, dbManager *db.DBManager) *BookService {
	return &BookService{
		repo:      repo,
		dbManager: dbManager,
	}
}

// Post creates a new book in the available state. Title and author are
// stored as given; the original exposes no validation on them.
func (s *BookService) Post(ctx context.Context, owner, title, author, description string, imagePath *string) (*models.Book, error) {
	book := &models.Book{
		Title:       title,
		Author:      author,
		Description: description,
		Owner:       owner,
		Status:      models.BookAvailable,
		ImagePath:   imagePath,
	}

	created, err := s.dbManager.CreateBook(s.repo, ctx, book)
	if err != nil {
		return nil, fmt.Errorf("error posting book: %w", err)
	}

	return created, nil
}

// Search returns available books matching query against title or author,
// case-insensitively; an empty query returns all available books.
func (s *BookService) Search(ctx context.Context, query string) ([]*models.Book, error) {
	books, err := s.repo.SearchAvailable(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching books: %w", err)
	}
	return books, nil
}

// FindByID finds a book by ID
func (s *BookService) FindByID(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding book: %w", err)
	}
	return book, nil
}

// Borrow transitions a book from available to borrowed on behalf of caller.
// The pre-checks produce the precise error; the conditional update is still
// what decides a race, so two simultaneous borrows serialize on the store.
func (s *BookService) Borrow(ctx context.Context, id, caller string) error {
	book, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if book.Owner == caller {
		return ErrSelfBorrow
	}
	if !book.Available() {
		return ErrAlreadyBorrowed
	}

	if err := s.dbManager.MarkBorrowed(s.repo, ctx, id, caller); err != nil {
		if errors.Is(err, db.ErrConflict) {
			// Lost the race to another borrower between the read and the update
			return ErrAlreadyBorrowed
		}
		return fmt.Errorf("error borrowing book: %w", err)
	}

	return nil
}

// Return transitions a book from borrowed back to available. Only the
// current borrower may return it; anyone else, including the owner, gets
// ErrNotBorrower and the book is left untouched.
func (s *BookService) Return(ctx context.Context, id, caller string) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.dbManager.MarkReturned(s.repo, ctx, id, caller); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return ErrNotBorrower
		}
		return fmt.Errorf("error returning book: %w", err)
	}

	return nil
}

// ListOwned returns all books posted by username
func (s *BookService) ListOwned(ctx context.Context, username string) ([]*models.Book, error) {
	books, err := s.repo.FindByOwner(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error listing owned books: %w", err)
	}
	return books, nil
}

// ListBorrowed returns all books currently borrowed by username
func (s *BookService) ListBorrowed(ctx context.Context, username string) ([]*models.Book, error) {
	books, err := s.repo.FindByBorrower(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error listing borrowed books: %w", err)
	}
	return books, nil
}
