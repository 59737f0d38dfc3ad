package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"classadmin/internal/assignment"
)

// Repository persists submissions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns one submission, nil when missing.
func (r *Repository) Get(ctx context.Context, id string) (*Submission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, student_id, notes, status, grade, feedback, submitted_at, updated_at
		FROM submissions WHERE id = $1
	`, id)
	var s Submission
	if err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Notes, &s.Status, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListByAssignment returns submissions for an assignment, newest update first.
func (r *Repository) ListByAssignment(ctx context.Context, assignmentID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assignment_id, student_id, notes, status, grade, feedback, submitted_at, updated_at
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY updated_at DESC
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Notes, &s.Status, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SaveWithEntry upserts the submission row and rewrites the student's entry
// in the assignment's status map inside one transaction.
func (r *Repository) SaveWithEntry(ctx context.Context, sub Submission, entry assignment.Entry) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (id, assignment_id, student_id, notes, status, grade, feedback, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			notes = EXCLUDED.notes,
			status = EXCLUDED.status,
			grade = EXCLUDED.grade,
			feedback = EXCLUDED.feedback,
			updated_at = EXCLUDED.updated_at
	`, sub.ID, sub.AssignmentID, sub.StudentID, sub.Notes, sub.Status, sub.Grade, sub.Feedback, sub.SubmittedAt, sub.UpdatedAt)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE assignments
		SET status_map = jsonb_set(status_map, ARRAY[$2], $3::jsonb)
		WHERE id = $1
	`, sub.AssignmentID, sub.StudentID, blob)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.ErrNotFound
	}

	return tx.Commit()
}
