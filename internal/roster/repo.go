package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists roster data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns every active attendee ordered by name.
func (r *Repository) List(ctx context.Context) ([]Attendee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, created_at
		FROM attendees
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Attendee
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// Get returns a single active attendee, nil when missing.
func (r *Repository) Get(ctx context.Context, id string) (*Attendee, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM attendees WHERE id = $1
	`, id)
	var a Attendee
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Insert writes a new active attendee.
func (r *Repository) Insert(ctx context.Context, a Attendee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendees (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.Name, a.Email, a.CreatedAt)
	return err
}

// Update rewrites name and email.
func (r *Repository) Update(ctx context.Context, a Attendee) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendees SET name = $2, email = $3 WHERE id = $1
	`, a.ID, a.Name, a.Email)
	return err
}

// Remove deletes an active attendee row.
func (r *Repository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	return err
}

// ActiveEmailHolder returns the active attendee holding the email, exact
// match, nil when none.
func (r *Repository) ActiveEmailHolder(ctx context.Context, email string) (*Attendee, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM attendees WHERE email = $1 LIMIT 1
	`, email)
	var a Attendee
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ArchivedEmailHolder returns the archived attendee holding the email, nil
// when none.
func (r *Repository) ArchivedEmailHolder(ctx context.Context, email string) (*ArchivedAttendee, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, original_id, name, email, deleted_at
		FROM deleted_attendees WHERE email = $1 LIMIT 1
	`, email)
	var a ArchivedAttendee
	if err := row.Scan(&a.ID, &a.OriginalID, &a.Name, &a.Email, &a.DeletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListArchived returns every archived attendee, newest deletion first.
func (r *Repository) ListArchived(ctx context.Context) ([]ArchivedAttendee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, original_id, name, email, deleted_at
		FROM deleted_attendees
		ORDER BY deleted_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ArchivedAttendee
	for rows.Next() {
		var a ArchivedAttendee
		if err := rows.Scan(&a.ID, &a.OriginalID, &a.Name, &a.Email, &a.DeletedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// GetArchived returns a single archived attendee, nil when missing.
func (r *Repository) GetArchived(ctx context.Context, id string) (*ArchivedAttendee, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, original_id, name, email, deleted_at
		FROM deleted_attendees WHERE id = $1
	`, id)
	var a ArchivedAttendee
	if err := row.Scan(&a.ID, &a.OriginalID, &a.Name, &a.Email, &a.DeletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// InsertArchived writes an archive row.
func (r *Repository) InsertArchived(ctx context.Context, a ArchivedAttendee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deleted_attendees (id, original_id, name, email, deleted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.OriginalID, a.Name, a.Email, a.DeletedAt)
	return err
}

// RemoveArchived deletes an archive row.
func (r *Repository) RemoveArchived(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deleted_attendees WHERE id = $1`, id)
	return err
}
