package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"bookswap/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserRepository implements the UserRepository interface for MongoDB
type MongoUserRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(client *mongo.Client, database, collection string) *MongoUserRepository {
	return &MongoUserRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

// Close closes the MongoDB connection
func (r *MongoUserRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// FindByUsername finds a user by username
func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.client.Database(r.database).Collection(r.collection).
		FindOne(ctx, bson.M{"_id": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	return &user, nil
}

// Create inserts a new user. The username is the document _id, so the
// duplicate-key error doubles as the uniqueness constraint.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := r.client.Database(r.database).Collection(r.collection).
		InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

// MongoBookRepository implements the BookRepository interface for MongoDB
type MongoBookRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoBookRepository creates a new MongoBookRepository
func NewMongoBookRepository(client *mongo.Client, database, collection string) *MongoBookRepository {
	return &MongoBookRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

// Close closes the MongoDB connection
func (r *MongoBookRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// FindByID finds a book by ID
func (r *MongoBookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := r.client.Database(r.database).Collection(r.collection).
		FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding book: %w", err)
	}

	return &book, nil
}

// Create inserts a new book
func (r *MongoBookRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.ID == "" {
		book.ID = primitive.NewObjectID().Hex()
	}

	_, err := r.client.Database(r.database).Collection(r.collection).
		InsertOne(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("error creating book: %w", err)
	}

	return book, nil
}

// SearchAvailable finds available books whose title or author contains query,
// case-insensitively. The query text is regex-quoted so it matches as a
// literal substring. Results come back in natural order; callers must not
// rely on it.
func (r *MongoBookRepository) SearchAvailable(ctx context.Context, query string) ([]*models.Book, error) {
	filter := bson.M{"status": models.BookAvailable}
	if query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
		filter = bson.M{
			"$and": bson.A{
				bson.M{"status": models.BookAvailable},
				bson.M{"$or": bson.A{
					bson.M{"title": pattern},
					bson.M{"author": pattern},
				}},
			},
		}
	}

	return r.findBooks(ctx, filter)
}

// FindByOwner finds all books posted by username
func (r *MongoBookRepository) FindByOwner(ctx context.Context, username string) ([]*models.Book, error) {
	return r.findBooks(ctx, bson.M{"owner": username})
}

// FindByBorrower finds all books currently borrowed by username
func (r *MongoBookRepository) FindByBorrower(ctx context.Context, username string) ([]*models.Book, error) {
	return r.findBooks(ctx, bson.M{"borrower": username})
}

func (r *MongoBookRepository) findBooks(ctx context.Context, filter bson.M) ([]*models.Book, error) {
	cursor, err := r.client.Database(r.database).Collection(r.collection).
		Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding books: %w", err)
	}
	defer cursor.Close(ctx)

	var books []*models.Book
	if err = cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("error decoding books: %w", err)
	}

	return books, nil
}

// MarkBorrowed flips the book to borrowed only if it is still available. The
// filter on status makes the UpdateOne an atomic compare-and-swap; a racing
// borrow sees ModifiedCount zero and reports ErrConflict.
func (r *MongoBookRepository) MarkBorrowed(ctx context.Context, id, borrower string) error {
	filter := bson.M{"_id": id, "status": models.BookAvailable}
	update := bson.M{"$set": bson.M{
		"status":     models.BookBorrowed,
		"borrower":   borrower,
		"updated_at": time.Now(),
	}}

	result, err := r.client.Database(r.database).Collection(r.collection).
		UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error borrowing book: %w", err)
	}

	if result.ModifiedCount == 0 {
		return ErrConflict
	}

	return nil
}

// MarkReturned clears the borrower only if borrower currently holds the book
func (r *MongoBookRepository) MarkReturned(ctx context.Context, id, borrower string) error {
	filter := bson.M{"_id": id, "status": models.BookBorrowed, "borrower": borrower}
	update := bson.M{
		"$set":   bson.M{"status": models.BookAvailable, "updated_at": time.Now()},
		"$unset": bson.M{"borrower": ""},
	}

	result, err := r.client.Database(r.database).Collection(r.collection).
		UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error returning book: %w", err)
	}

	if result.ModifiedCount == 0 {
		return ErrConflict
	}

	return nil
}

// MongoMessageRepository implements the MessageRepository interface for MongoDB
type MongoMessageRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(client *mongo.Client, database, collection string) *MongoMessageRepository {
	return &MongoMessageRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

// Close closes the MongoDB connection
func (r *MongoMessageRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// Create appends a message to a book's thread
func (r *MongoMessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = primitive.NewObjectID().Hex()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.client.Database(r.database).Collection(r.collection).
		InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}

	return nil
}

// FindByBookID finds all messages for a book in insertion order
func (r *MongoMessageRepository) FindByBookID(ctx context.Context, bookID string) ([]*models.Message, error) {
	cursor, err := r.client.Database(r.database).Collection(r.collection).
		Find(ctx, bson.M{"book_id": bookID})
	if err != nil {
		return nil, fmt.Errorf("error finding messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("error decoding messages: %w", err)
	}

	return messages, nil
}
