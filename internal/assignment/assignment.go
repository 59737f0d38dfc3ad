package assignment

import (
	"errors"
	"time"
)

// Status is the per-student state of an assignment.
type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusAssigned, StatusSubmitted, StatusGraded:
		return true
	default:
		return false
	}
}

// Entry is one student's slot in an assignment's status map.
type Entry struct {
	Status    Status    `json:"status"`
	Grade     string    `json:"grade,omitempty"`
	Note      string    `json:"note,omitempty"`
	FileURL   string    `json:"file_url,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// same compares everything except the timestamp.
func (e Entry) same(o Entry) bool {
	return e.Status == o.Status &&
		e.Grade == o.Grade &&
		e.Note == o.Note &&
		e.FileURL == o.FileURL &&
		e.FileName == o.FileName
}

// Assignment holds the task definition plus the per-student status map. The
// map is a snapshot of the roster at creation time; attendees added to the
// roster later only appear after an explicit sync.
type Assignment struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	StatusMap   map[string]Entry `json:"status_map"`
	CreatedAt   time.Time        `json:"created_at"`
}

var (
	// ErrNotFound is returned when the referenced assignment does not exist.
	ErrNotFound = errors.New("assignment not found")
	// ErrInvalid is returned when request input fails validation.
	ErrInvalid = errors.New("invalid assignment input")
)
