package chat

import (
	"context"
	"errors"
	"fmt"

	"bookswap/db"
	"bookswap/internal/book"
	"bookswap/models"
)

var (
	ErrForbidden = errors.New("no access to this book's thread")
)

// MessageService owns the per-loan message threads. A thread belongs to the
// two participants of a loan: the book's owner and its current borrower.
type MessageService struct {
	repo        db.MessageRepository
	bookService *book.BookService
	dbManager   *db.DBManager
}

// NewMessageService creates a new MessageService
func NewMessageService(repo db.MessageRepository, bookService *book.BookService, dbManager *db.DBManager) *MessageService {
	return &MessageService{
		repo:        repo,
		bookService: bookService,
		dbManager:   dbManager,
	}
}

// CanAccess reports whether username may read or write the book's thread
func (s *MessageService) CanAccess(b *models.Book, username string) bool {
	return username == b.Owner || b.BorrowedBy(username)
}

// PostMessage appends a message to the book's thread on behalf of sender.
// The recipient is whichever of owner/borrower the sender is not, resolved
// at write time and stored on the message. Empty text is silently dropped,
// matching the original form behavior.
func (s *MessageService) PostMessage(ctx context.Context, bookID, sender, text string) error {
	b, err := s.bookService.FindByID(ctx, bookID)
	if err != nil {
		return err
	}

	if !s.CanAccess(b, sender) {
		return ErrForbidden
	}

	if text == "" {
		return nil
	}

	recipient, _ := b.OtherParty(sender)
	message := &models.Message{
		BookID:    bookID,
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
	}

	if err := s.dbManager.CreateMessage(s.repo, ctx, message); err != nil {
		return fmt.Errorf("error posting message: %w", err)
	}

	return nil
}

// Thread returns the book's messages in insertion order. Reads are gated on
// the same owner-or-borrower check as writes.
func (s *MessageService) Thread(ctx context.Context, bookID, caller string) ([]*models.Message, error) {
	b, err := s.bookService.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if !s.CanAccess(b, caller) {
		return nil, ErrForbidden
	}

	messages, err := s.repo.FindByBookID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("error reading thread: %w", err)
	}

	return messages, nil
}
