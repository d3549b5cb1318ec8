package db

import (
	"context"
	"database/sql"
	"errors"

	"bookswap/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no rows,
	// i.e. the record was not in the expected state.
	ErrConflict = errors.New("record not in expected state")
	// ErrDuplicate is returned when a uniqueness constraint rejects an insert.
	ErrDuplicate = errors.New("record already exists")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// UserRepository defines the interface for user operations
type UserRepository interface {
	Repository
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// BookRepository defines the interface for book operations
type BookRepository interface {
	Repository
	FindByID(ctx context.Context, id string) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	SearchAvailable(ctx context.Context, query string) ([]*models.Book, error)
	FindByOwner(ctx context.Context, username string) ([]*models.Book, error)
	FindByBorrower(ctx context.Context, username string) ([]*models.Book, error)
	// MarkBorrowed sets the borrower only if the book is still available;
	// returns ErrConflict otherwise. This is the single serialization point
	// for concurrent borrow attempts.
	MarkBorrowed(ctx context.Context, id, borrower string) error
	// MarkReturned clears the borrower only if borrower currently holds the
	// book; returns ErrConflict otherwise.
	MarkReturned(ctx context.Context, id, borrower string) error
}

// MessageRepository defines the interface for loan thread operations
type MessageRepository interface {
	Repository
	Create(ctx context.Context, message *models.Message) error
	FindByBookID(ctx context.Context, bookID string) ([]*models.Message, error)
}

// RepositoryFactory creates repositories based on the database type
type RepositoryFactory struct {
	SQLiteDB    *sql.DB
	MongoClient *mongo.Client
	DBName      string
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB, mongoClient *mongo.Client, dbName string) *RepositoryFactory {
	return &RepositoryFactory{
		SQLiteDB:    sqliteDB,
		MongoClient: mongoClient,
		DBName:      dbName,
	}
}

// NewUserRepository creates a new user repository
func (f *RepositoryFactory) NewUserRepository() UserRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteUserRepository(f.SQLiteDB)
	}
	return NewMongoUserRepository(f.MongoClient, f.DBName, "users")
}

// NewBookRepository creates a new book repository
func (f *RepositoryFactory) NewBookRepository() BookRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteBookRepository(f.SQLiteDB)
	}
	return NewMongoBookRepository(f.MongoClient, f.DBName, "books")
}

// NewMessageRepository creates a new message repository
func (f *RepositoryFactory) NewMessageRepository() MessageRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteMessageRepository(f.SQLiteDB)
	}
	return NewMongoMessageRepository(f.MongoClient, f.DBName, "messages")
}

// GenerateID generates a unique ID for a record
func GenerateID() string {
	return uuid.New().String()
}

// ObjectIDFromString converts a string to an ObjectID
func ObjectIDFromString(id string) primitive.ObjectID {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return objectID
}
