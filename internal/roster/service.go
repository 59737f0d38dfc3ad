package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs.
type Store interface {
	List(ctx context.Context) ([]Attendee, error)
	Get(ctx context.Context, id string) (*Attendee, error)
	Insert(ctx context.Context, a Attendee) error
	Update(ctx context.Context, a Attendee) error
	Remove(ctx context.Context, id string) error
	ActiveEmailHolder(ctx context.Context, email string) (*Attendee, error)
	ArchivedEmailHolder(ctx context.Context, email string) (*ArchivedAttendee, error)
	ListArchived(ctx context.Context) ([]ArchivedAttendee, error)
	GetArchived(ctx context.Context, id string) (*ArchivedAttendee, error)
	InsertArchived(ctx context.Context, a ArchivedAttendee) error
	RemoveArchived(ctx context.Context, id string) error
}

// Service enforces roster rules on top of a Store.
type Service struct {
	store Store
}

// NewService creates a roster service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns all active attendees.
func (s *Service) List(ctx context.Context) ([]Attendee, error) {
	return s.store.List(ctx)
}

// Get returns one active attendee.
func (s *Service) Get(ctx context.Context, id string) (*Attendee, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// FindByEmail returns the active attendee holding the email, nil when none.
func (s *Service) FindByEmail(ctx context.Context, email string) (*Attendee, error) {
	return s.store.ActiveEmailHolder(ctx, email)
}

// ListArchived returns all soft-deleted attendees.
func (s *Service) ListArchived(ctx context.Context) ([]ArchivedAttendee, error) {
	return s.store.ListArchived(ctx)
}

// Add creates an active attendee. The email must not be held by any active
// or archived attendee. Comparison is exact (case-sensitive) to match the
// system this replaces.
func (s *Service) Add(ctx context.Context, name, email string) (Attendee, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return Attendee{}, fmt.Errorf("%w: name and email required", ErrInvalid)
	}
	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return Attendee{}, err
	}
	if taken {
		return Attendee{}, ErrDuplicateEmail
	}
	a := Attendee{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return Attendee{}, err
	}
	return a, nil
}

// Edit updates name and email of an active attendee. A duplicate match
// against the attendee's own id is allowed.
func (s *Service) Edit(ctx context.Context, id, name, email string) (Attendee, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return Attendee{}, fmt.Errorf("%w: name and email required", ErrInvalid)
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return Attendee{}, err
	}
	if existing == nil {
		return Attendee{}, ErrNotFound
	}
	taken, err := s.emailTaken(ctx, email, id)
	if err != nil {
		return Attendee{}, err
	}
	if taken {
		return Attendee{}, ErrDuplicateEmail
	}
	existing.Name = name
	existing.Email = email
	if err := s.store.Update(ctx, *existing); err != nil {
		return Attendee{}, err
	}
	return *existing, nil
}

// SoftDelete moves an active attendee into the archive. Historical
// attendance and assignment records keep referencing the original id and are
// not touched.
func (s *Service) SoftDelete(ctx context.Context, id string) (ArchivedAttendee, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return ArchivedAttendee{}, err
	}
	if existing == nil {
		return ArchivedAttendee{}, ErrNotFound
	}
	archived := ArchivedAttendee{
		ID:         uuid.NewString(),
		OriginalID: existing.ID,
		Name:       existing.Name,
		Email:      existing.Email,
		DeletedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertArchived(ctx, archived); err != nil {
		return ArchivedAttendee{}, err
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return ArchivedAttendee{}, err
	}
	return archived, nil
}

// Restore re-creates an archived attendee in the active set under its
// original id. Fails with ErrDuplicateEmail when an active attendee already
// holds the email.
func (s *Service) Restore(ctx context.Context, archiveID string) (Attendee, error) {
	archived, err := s.store.GetArchived(ctx, archiveID)
	if err != nil {
		return Attendee{}, err
	}
	if archived == nil {
		return Attendee{}, ErrNotFound
	}
	holder, err := s.store.ActiveEmailHolder(ctx, archived.Email)
	if err != nil {
		return Attendee{}, err
	}
	if holder != nil {
		return Attendee{}, ErrDuplicateEmail
	}
	restored := Attendee{
		ID:        archived.OriginalID,
		Name:      archived.Name,
		Email:     archived.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, restored); err != nil {
		return Attendee{}, err
	}
	if err := s.store.RemoveArchived(ctx, archiveID); err != nil {
		return Attendee{}, err
	}
	return restored, nil
}

// emailTaken reports whether the email is held by an active attendee other
// than exceptID, or by any archived attendee.
func (s *Service) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	active, err := s.store.ActiveEmailHolder(ctx, email)
	if err != nil {
		return false, err
	}
	if active != nil && active.ID != exceptID {
		return true, nil
	}
	archived, err := s.store.ArchivedEmailHolder(ctx, email)
	if err != nil {
		return false, err
	}
	return archived != nil, nil
}
