package models

import (
	"time"
)

// User mirrors an identity issued by the external identity provider.
// The ID is the provider's stable subject.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
