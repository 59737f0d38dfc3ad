package submission

import (
	"errors"
	"time"
)

// Submission statuses.
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

// Submission is a student's hand-in for one assignment. The id is the
// composite assignmentID_studentID, which enforces one submission per
// (assignment, student) pair.
type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	Notes        string    `json:"notes,omitempty"`
	Status       string    `json:"status"`
	Grade        string    `json:"grade,omitempty"`
	Feedback     string    `json:"feedback,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CompositeID builds the submission key for an (assignment, student) pair.
func CompositeID(assignmentID, studentID string) string {
	return assignmentID + "_" + studentID
}

var (
	// ErrNotFound is returned when the referenced submission does not exist.
	ErrNotFound = errors.New("submission not found")
	// ErrInvalid is returned when request input fails validation.
	ErrInvalid = errors.New("invalid submission input")
)
