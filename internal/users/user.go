package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials as stored: the password hash is computed client-side with the
// stored salt, the server never sees the cleartext password.
type Credentials struct {
	PasswordHash string
	PasswordSalt string
}
