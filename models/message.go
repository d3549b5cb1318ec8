package models

import (
	"time"
)

// Message is a single entry in a book's loan thread. Recipient is derived
// from the loan participants when the message is written and kept as a
// historical record; it is not re-resolved if the borrower later changes.
type Message struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	BookID    string    `bson:"book_id" json:"book_id"`
	Sender    string    `bson:"sender" json:"sender"`
	Recipient string    `bson:"recipient" json:"recipient"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
