package assignment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"classadmin/internal/roster"
)

// Store is the persistence surface the service needs. MutateStatusMap
// applies the callback to the stored map atomically, so entries written by
// submissions or grading while a handler was reading can never be clobbered
// by a stale snapshot.
type Store interface {
	List(ctx context.Context) ([]Assignment, error)
	Get(ctx context.Context, id string) (*Assignment, error)
	Insert(ctx context.Context, a Assignment) error
	MutateStatusMap(ctx context.Context, id string, mutate func(m map[string]Entry) (map[string]Entry, bool, error)) (*Assignment, error)
	SetEntry(ctx context.Context, id, studentID string, e Entry) error
}

// RosterLister yields the current active roster.
type RosterLister interface {
	List(ctx context.Context) ([]roster.Attendee, error)
}

// Service coordinates assignments and their status maps.
type Service struct {
	store  Store
	roster RosterLister
}

// NewService creates an assignment service.
func NewService(store Store, r RosterLister) *Service {
	return &Service{store: store, roster: r}
}

// List returns all assignments.
func (s *Service) List(ctx context.Context) ([]Assignment, error) {
	return s.store.List(ctx)
}

// Get returns one assignment.
func (s *Service) Get(ctx context.Context, id string) (Assignment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a == nil {
		return Assignment{}, ErrNotFound
	}
	return *a, nil
}

// Create snapshots the current roster into a fresh status map, every entry
// starting as assigned. Attendees added after creation are only picked up by
// SyncRoster.
func (s *Service) Create(ctx context.Context, title, description string, dueDate *time.Time) (Assignment, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Assignment{}, fmt.Errorf("%w: title required", ErrInvalid)
	}
	attendees, err := s.roster.List(ctx)
	if err != nil {
		return Assignment{}, err
	}
	now := time.Now().UTC()
	statusMap := make(map[string]Entry, len(attendees))
	for _, a := range attendees {
		statusMap[a.ID] = Entry{Status: StatusAssigned, UpdatedAt: now}
	}
	asg := Assignment{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		StatusMap:   statusMap,
		CreatedAt:   now,
	}
	if err := s.store.Insert(ctx, asg); err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

// SyncRoster adds a fresh assigned entry for every roster member missing
// from the status map. Existing entries are never overwritten or removed, so
// the call is idempotent while the roster is unchanged.
func (s *Service) SyncRoster(ctx context.Context, id string) (Assignment, error) {
	attendees, err := s.roster.List(ctx)
	if err != nil {
		return Assignment{}, err
	}
	now := time.Now().UTC()
	return s.mutate(ctx, id, func(m map[string]Entry) (map[string]Entry, bool, error) {
		added := false
		for _, a := range attendees {
			if _, ok := m[a.ID]; ok {
				continue
			}
			m[a.ID] = Entry{Status: StatusAssigned, UpdatedAt: now}
			added = true
		}
		return m, added, nil
	})
}

// BulkSetStatus sets every entry in the status map to the given status.
func (s *Service) BulkSetStatus(ctx context.Context, id string, status Status) (Assignment, error) {
	if !status.Valid() {
		return Assignment{}, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	now := time.Now().UTC()
	return s.mutate(ctx, id, func(m map[string]Entry) (map[string]Entry, bool, error) {
		for sid, entry := range m {
			entry.Status = status
			entry.UpdatedAt = now
			m[sid] = entry
		}
		return m, true, nil
	})
}

// AttachFile records an uploaded file reference on one student's entry.
func (s *Service) AttachFile(ctx context.Context, id, studentID, fileURL, fileName string) (Entry, error) {
	asg, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	entry := asg.StatusMap[studentID]
	entry.FileURL = fileURL
	entry.FileName = fileName
	entry.UpdatedAt = time.Now().UTC()
	if entry.Status == "" {
		entry.Status = StatusAssigned
	}
	if err := s.store.SetEntry(ctx, id, studentID, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// SaveStatusMap replaces the whole status map. Entries identical to what is
// stored keep their old timestamp; only changed or new entries are stamped.
func (s *Service) SaveStatusMap(ctx context.Context, id string, m map[string]Entry) (Assignment, error) {
	for sid, entry := range m {
		if !entry.Status.Valid() {
			return Assignment{}, fmt.Errorf("%w: unknown status for %s", ErrInvalid, sid)
		}
	}
	now := time.Now().UTC()
	return s.mutate(ctx, id, func(stored map[string]Entry) (map[string]Entry, bool, error) {
		next := make(map[string]Entry, len(m))
		for sid, entry := range m {
			if prev, ok := stored[sid]; ok && prev.same(entry) {
				entry.UpdatedAt = prev.UpdatedAt
			} else {
				entry.UpdatedAt = now
			}
			next[sid] = entry
		}
		return next, true, nil
	})
}

// mutate routes a status map change through the store's atomic
// read-modify-write and maps a missing assignment to ErrNotFound.
func (s *Service) mutate(ctx context.Context, id string, fn func(m map[string]Entry) (map[string]Entry, bool, error)) (Assignment, error) {
	asg, err := s.store.MutateStatusMap(ctx, id, fn)
	if err != nil {
		return Assignment{}, err
	}
	if asg == nil {
		return Assignment{}, ErrNotFound
	}
	return *asg, nil
}
