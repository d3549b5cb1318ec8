package models

import (
	"time"
)

type BookStatus string

// Constants for book lifecycle status
const (
	BookAvailable BookStatus = "available"
	BookBorrowed  BookStatus = "borrowed"
)

// Book represents a posted book. Borrower is set if and only if the status
// is BookBorrowed; the repositories flip both fields in a single conditional
// update so the pair can never be observed out of sync.
type Book struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Author      string     `bson:"author" json:"author"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Owner       string     `bson:"owner" json:"owner"`
	Status      BookStatus `bson:"status" json:"status"`
	Borrower    *string    `bson:"borrower,omitempty" json:"borrower,omitempty"`
	ImagePath   *string    `bson:"image_path,omitempty" json:"image_path,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Available reports whether the book can currently be borrowed.
func (b *Book) Available() bool {
	return b.Status == BookAvailable
}

// BorrowedBy reports whether username is the current borrower.
func (b *Book) BorrowedBy(username string) bool {
	return b.Status == BookBorrowed && b.Borrower != nil && *b.Borrower == username
}

// OtherParty returns the loan participant opposite to username: the borrower
// for the owner, the owner for the borrower. The second return is false when
// username is not a participant or no borrower exists yet.
func (b *Book) OtherParty(username string) (string, bool) {
	if username == b.Owner {
		if b.Borrower == nil {
			return "", false
		}
		return *b.Borrower, true
	}
	if b.BorrowedBy(username) {
		return b.Owner, true
	}
	return "", false
}
