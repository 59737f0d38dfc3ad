package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the ledger document key format.
const DateLayout = "2006-01-02"

// ErrInvalid is returned when request input fails validation.
var ErrInvalid = errors.New("invalid attendance input")

// Store is the persistence surface the service needs. SaveDay must merge the
// edits over the stored records and recompute the summary from the merged
// set in the same write.
type Store interface {
	LoadDay(ctx context.Context, date string) (*Day, error)
	SaveDay(ctx context.Context, date string, edits map[string]Record) (Day, error)
	ListRange(ctx context.Context, from, to string) ([]Day, error)
}

// Service validates and shapes ledger operations.
type Service struct {
	store Store
}

// NewService creates an attendance service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// LoadDay returns the ledger for a date, or an empty day when none exists.
func (s *Service) LoadDay(ctx context.Context, date string) (Day, error) {
	if err := checkDate(date); err != nil {
		return Day{}, err
	}
	day, err := s.store.LoadDay(ctx, date)
	if err != nil {
		return Day{}, err
	}
	if day == nil {
		return Day{Date: date, Records: map[string]Record{}}, nil
	}
	return *day, nil
}

// SaveDay merges the edits into the stored day. Edits with no status chosen
// are skipped entirely rather than written as a default. Every kept edit
// gets a fresh UpdatedAt stamp.
func (s *Service) SaveDay(ctx context.Context, date string, edits map[string]Record) (Day, error) {
	if err := checkDate(date); err != nil {
		return Day{}, err
	}
	now := time.Now().UTC()
	kept := make(map[string]Record, len(edits))
	for id, rec := range edits {
		if rec.Status == "" {
			continue
		}
		if !rec.Status.Valid() {
			return Day{}, fmt.Errorf("%w: attendee %s: unknown status %q", ErrInvalid, id, rec.Status)
		}
		rec.AttendeeID = id
		rec.UpdatedAt = now
		kept[id] = rec
	}
	if len(kept) == 0 {
		return Day{}, fmt.Errorf("%w: no records to save", ErrInvalid)
	}
	return s.store.SaveDay(ctx, date, kept)
}

// ListRange returns ledgers for dates in [from, to], both inclusive.
func (s *Service) ListRange(ctx context.Context, from, to string) ([]Day, error) {
	if err := checkDate(from); err != nil {
		return nil, err
	}
	if err := checkDate(to); err != nil {
		return nil, err
	}
	return s.store.ListRange(ctx, from, to)
}

func checkDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", ErrInvalid, date)
	}
	return nil
}
