package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. PasswordHash is opaque: it is only ever fed
// to bcrypt verification, never compared by equality.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session is the authenticated-caller token carried by value into every core
// call. It holds no secret material.
type Session struct {
	UserID   uuid.UUID
	Username string
}
