package submission

import (
	"context"
	"fmt"
	"time"

	"classadmin/internal/assignment"
)

// Store is the persistence surface the service needs. SaveWithEntry must
// write the submission and the matching assignment status-map entry in one
// transaction; the two must never diverge on partial failure.
type Store interface {
	Get(ctx context.Context, id string) (*Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]Submission, error)
	SaveWithEntry(ctx context.Context, sub Submission, entry assignment.Entry) error
}

// AssignmentReader loads assignments for entry lookups.
type AssignmentReader interface {
	Get(ctx context.Context, id string) (assignment.Assignment, error)
}

// Service handles student hand-ins and teacher grading.
type Service struct {
	store       Store
	assignments AssignmentReader
}

// NewService creates a submission service.
func NewService(store Store, assignments AssignmentReader) *Service {
	return &Service{store: store, assignments: assignments}
}

// Get returns one submission.
func (s *Service) Get(ctx context.Context, id string) (Submission, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub == nil {
		return Submission{}, ErrNotFound
	}
	return *sub, nil
}

// ListByAssignment returns all submissions for an assignment.
func (s *Service) ListByAssignment(ctx context.Context, assignmentID string) ([]Submission, error) {
	return s.store.ListByAssignment(ctx, assignmentID)
}

// Submit records a student hand-in. The submission is created or updated and
// the student's status-map entry moves to submitted with any attached file
// reference cleared; both writes land in one transaction.
func (s *Service) Submit(ctx context.Context, assignmentID, studentID, notes string) (Submission, error) {
	if assignmentID == "" || studentID == "" {
		return Submission{}, fmt.Errorf("%w: assignment and student required", ErrInvalid)
	}
	asg, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := time.Now().UTC()
	id := CompositeID(assignmentID, studentID)
	sub := Submission{
		ID:           id,
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Notes:        notes,
		Status:       StatusSubmitted,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
	if existing, err := s.store.Get(ctx, id); err != nil {
		return Submission{}, err
	} else if existing != nil {
		// re-submit keeps the grading trail until the teacher regrades
		sub.Grade = existing.Grade
		sub.Feedback = existing.Feedback
		sub.SubmittedAt = existing.SubmittedAt
	}

	entry := asg.StatusMap[studentID]
	entry.Status = assignment.StatusSubmitted
	entry.FileURL = ""
	entry.FileName = ""
	entry.UpdatedAt = now

	if err := s.store.SaveWithEntry(ctx, sub, entry); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// Grade marks a submission graded and mirrors the grade (not the feedback)
// plus a graded status into the assignment's status-map entry, in one
// transaction.
func (s *Service) Grade(ctx context.Context, submissionID, grade, feedback string) (Submission, error) {
	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	asg, err := s.assignments.Get(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := time.Now().UTC()
	sub.Status = StatusGraded
	sub.Grade = grade
	sub.Feedback = feedback
	sub.UpdatedAt = now

	entry := asg.StatusMap[sub.StudentID]
	entry.Status = assignment.StatusGraded
	entry.Grade = grade
	entry.UpdatedAt = now

	if err := s.store.SaveWithEntry(ctx, sub, entry); err != nil {
		return Submission{}, err
	}
	return sub, nil
}
