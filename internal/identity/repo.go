package identity

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists user profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByUID returns a profile, nil when missing.
func (r *Repository) GetByUID(ctx context.Context, uid string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT uid, email, role, COALESCE(student_id, ''), created_at
		FROM users WHERE uid = $1
	`, uid)
	var u User
	if err := row.Scan(&u.UID, &u.Email, &u.Role, &u.StudentID, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a profile and its password hash, nil when missing.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT uid, email, role, COALESCE(student_id, ''), created_at, password
		FROM users WHERE email = $1
	`, email)
	var u User
	var hash string
	if err := row.Scan(&u.UID, &u.Email, &u.Role, &u.StudentID, &u.CreatedAt, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &u, hash, nil
}

// Insert writes a new profile.
func (r *Repository) Insert(ctx context.Context, u User, passwordHash string) error {
	var studentID any
	if u.StudentID != "" {
		studentID = u.StudentID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (uid, email, password, role, student_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.UID, u.Email, passwordHash, u.Role, studentID, u.CreatedAt)
	return err
}

// ClearStudentLink drops a broken roster reference from a profile.
func (r *Repository) ClearStudentLink(ctx context.Context, uid string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET student_id = NULL WHERE uid = $1
	`, uid)
	return err
}
