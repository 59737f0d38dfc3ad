package roster

import (
	"errors"
	"time"
)

// Attendee is an active roster entry.
type Attendee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ArchivedAttendee is a soft-deleted roster entry. OriginalID is kept so a
// restore re-creates the attendee under the identity its historical records
// reference.
type ArchivedAttendee struct {
	ID         string    `json:"id"`
	OriginalID string    `json:"original_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	DeletedAt  time.Time `json:"deleted_at"`
}

var (
	// ErrDuplicateEmail is returned when an email is already held by an
	// active or archived attendee.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrNotFound is returned when the referenced attendee does not exist.
	ErrNotFound = errors.New("attendee not found")
	// ErrInvalid is returned when request input fails validation.
	ErrInvalid = errors.New("invalid attendee input")
)
