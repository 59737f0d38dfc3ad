package identity

import (
	"errors"
	"time"
)

// User is a stored account profile. Role never changes after creation;
// StudentID is set only for student accounts and links the profile to its
// roster entry.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	StudentID string    `json:"student_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrEmailTaken is returned when an account with the email exists.
	ErrEmailTaken = errors.New("account email already in use")
	// ErrInvalidCredentials is returned on a failed sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalid is returned when request input fails validation.
	ErrInvalid = errors.New("invalid account input")
)
