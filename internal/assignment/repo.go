package assignment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// Repository persists assignments in Postgres, the status map as a jsonb
// document on the assignment row.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns all assignments, newest first.
func (r *Repository) List(ctx context.Context) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, due_date, status_map, created_at
		FROM assignments
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Assignment
	for rows.Next() {
		var a Assignment
		var raw []byte
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.DueDate, &raw, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &a.StatusMap); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// Get returns one assignment, nil when missing.
func (r *Repository) Get(ctx context.Context, id string) (*Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, due_date, status_map, created_at
		FROM assignments WHERE id = $1
	`, id)
	var a Assignment
	var raw []byte
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.DueDate, &raw, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &a.StatusMap); err != nil {
		return nil, err
	}
	return &a, nil
}

// Insert writes a new assignment.
func (r *Repository) Insert(ctx context.Context, a Assignment) error {
	blob, err := json.Marshal(a.StatusMap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO assignments (id, title, description, due_date, status_map, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Title, a.Description, a.DueDate, blob, a.CreatedAt)
	return err
}

// MutateStatusMap applies mutate to the stored status map inside one
// transaction. The assignment row is locked for the read-modify-write so
// concurrent submits and grades land between mutations, never under them.
// Returns nil when the assignment is missing. Mutate returns the next map
// and whether it needs writing.
func (r *Repository) MutateStatusMap(ctx context.Context, id string, mutate func(m map[string]Entry) (map[string]Entry, bool, error)) (*Assignment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, description, due_date, status_map, created_at
		FROM assignments WHERE id = $1 FOR UPDATE
	`, id)
	var a Assignment
	var raw []byte
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.DueDate, &raw, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &a.StatusMap); err != nil {
		return nil, err
	}

	next, write, err := mutate(a.StatusMap)
	if err != nil {
		return nil, err
	}
	a.StatusMap = next
	if !write {
		return &a, nil
	}

	blob, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE assignments SET status_map = $2 WHERE id = $1
	`, id, blob); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetEntry rewrites a single student's entry in the status map.
func (r *Repository) SetEntry(ctx context.Context, id, studentID string, e Entry) error {
	blob, err := json.Marshal(e)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments
		SET status_map = jsonb_set(status_map, ARRAY[$2], $3::jsonb)
		WHERE id = $1
	`, id, studentID, blob)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
