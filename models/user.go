package models

import (
	"time"
)

// User represents a registered account. Records are immutable after
// registration; there are no update or delete operations.
type User struct {
	Username     string    `bson:"_id" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"` // Never serialize the hash
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
