package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookswap/internal/util"
	"bookswap/models"

	"github.com/mattn/go-sqlite3"
)

// SQLiteUserRepository implements the UserRepository interface for SQLite
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteUserRepository) Close() error {
	return r.db.Close()
}

// FindByUsername finds a user by username
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT username, password_hash, created_at FROM users WHERE username = ?`
	row := r.db.QueryRowContext(ctx, query, username)

	var user models.User
	var createdAt sql.NullTime

	err := row.Scan(&user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}

	return &user, nil
}

// Create inserts a new user. The username primary key enforces uniqueness;
// violations are mapped to ErrDuplicate.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query := `INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

// SQLiteBookRepository implements the BookRepository interface for SQLite
type SQLiteBookRepository struct {
	db *sql.DB
}

// NewSQLiteBookRepository creates a new SQLiteBookRepository
func NewSQLiteBookRepository(db *sql.DB) *SQLiteBookRepository {
	return &SQLiteBookRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteBookRepository) Close() error {
	return r.db.Close()
}

const bookColumns = `id, title, author, COALESCE(description, ''), owner, status, borrower, image_path, created_at, updated_at`

func scanBook(scanner interface{ Scan(...any) error }) (*models.Book, error) {
	var book models.Book
	var borrower, imagePath sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := scanner.Scan(&book.ID, &book.Title, &book.Author, &book.Description,
		&book.Owner, &book.Status, &borrower, &imagePath, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if borrower.Valid {
		book.Borrower = &borrower.String
	}
	if imagePath.Valid {
		book.ImagePath = &imagePath.String
	}
	if createdAt.Valid {
		book.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		book.UpdatedAt = updatedAt.Time
	}

	return &book, nil
}

// FindByID finds a book by ID
func (r *SQLiteBookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning book: %w", err)
	}
	return book, nil
}

// Create inserts a new book
func (r *SQLiteBookRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.ID == "" {
		book.ID = GenerateID()
	}

	query := `INSERT INTO books (id, title, author, description, owner, status, borrower, image_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, book.ID, book.Title, book.Author,
		nullableString(stringToPtr(book.Description)), book.Owner, string(book.Status),
		nullableString(book.Borrower), nullableString(book.ImagePath), book.CreatedAt, book.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating book: %w", err)
	}

	return book, nil
}

// SearchAvailable finds available books whose title or author contains query,
// case-insensitively. An empty query matches every available book. Results
// come back in rowid order; callers must not rely on it.
func (r *SQLiteBookRepository) SearchAvailable(ctx context.Context, query string) ([]*models.Book, error) {
	sqlQuery := `SELECT ` + bookColumns + ` FROM books WHERE status = ?`
	args := []any{string(models.BookAvailable)}

	if query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		sqlQuery += ` AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	return r.queryBooks(ctx, sqlQuery, args...)
}

// FindByOwner finds all books posted by username
func (r *SQLiteBookRepository) FindByOwner(ctx context.Context, username string) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE owner = ?`
	return r.queryBooks(ctx, query, username)
}

// FindByBorrower finds all books currently borrowed by username
func (r *SQLiteBookRepository) FindByBorrower(ctx context.Context, username string) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE borrower = ?`
	return r.queryBooks(ctx, query, username)
}

func (r *SQLiteBookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]*models.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying books: %w", err)
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// MarkBorrowed flips the book to borrowed only if it is still available. The
// conditional UPDATE is the compare-and-swap that serializes racing borrows;
// zero affected rows means someone else got there first (or the id is bad).
func (r *SQLiteBookRepository) MarkBorrowed(ctx context.Context, id, borrower string) error {
	query := `UPDATE books SET status = ?, borrower = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := util.RetryOnLockWithResult(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, query,
			string(models.BookBorrowed), borrower, time.Now(), id, string(models.BookAvailable))
	})
	if err != nil {
		return fmt.Errorf("error borrowing book: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking borrow result: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// MarkReturned clears the borrower only if borrower currently holds the book
func (r *SQLiteBookRepository) MarkReturned(ctx context.Context, id, borrower string) error {
	query := `UPDATE books SET status = ?, borrower = NULL, updated_at = ? WHERE id = ? AND status = ? AND borrower = ?`
	result, err := util.RetryOnLockWithResult(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, query,
			string(models.BookAvailable), time.Now(), id, string(models.BookBorrowed), borrower)
	})
	if err != nil {
		return fmt.Errorf("error returning book: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking return result: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// SQLiteMessageRepository implements the MessageRepository interface for SQLite
type SQLiteMessageRepository struct {
	db *sql.DB
}

// NewSQLiteMessageRepository creates a new SQLiteMessageRepository
func NewSQLiteMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteMessageRepository) Close() error {
	return r.db.Close()
}

// Create appends a message to a book's thread
func (r *SQLiteMessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = GenerateID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	query := `INSERT INTO messages (id, book_id, sender, recipient, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	err := util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query, message.ID, message.BookID,
			message.Sender, message.Recipient, message.Text, message.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}

	return nil
}

// FindByBookID finds all messages for a book in insertion order
func (r *SQLiteMessageRepository) FindByBookID(ctx context.Context, bookID string) ([]*models.Message, error) {
	query := `SELECT id, book_id, sender, recipient, text, created_at FROM messages WHERE book_id = ? ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var message models.Message
		var createdAt sql.NullTime
		if err := rows.Scan(&message.ID, &message.BookID, &message.Sender,
			&message.Recipient, &message.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		if createdAt.Valid {
			message.CreatedAt = createdAt.Time
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringToPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// escapeLike escapes LIKE wildcards so user queries match literally
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
