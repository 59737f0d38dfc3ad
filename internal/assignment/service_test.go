package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"classadmin/internal/roster"
)

// fakeStore is an in-memory Store. beforeMutate, when set, runs inside
// MutateStatusMap before the callback sees the map, standing in for a
// write that commits while a handler holds a stale read.
type fakeStore struct {
	assignments  map[string]Assignment
	beforeMutate func(f *fakeStore)
}

func newFakeStore() *fakeStore {
	return &fakeStore{assignments: map[string]Assignment{}}
}

func (f *fakeStore) List(_ context.Context) ([]Assignment, error) {
	var res []Assignment
	for _, a := range f.assignments {
		res = append(res, a)
	}
	return res, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, nil
	}
	// deep-ish copy so service mutations go through MutateStatusMap
	m := make(map[string]Entry, len(a.StatusMap))
	for k, v := range a.StatusMap {
		m[k] = v
	}
	a.StatusMap = m
	return &a, nil
}

func (f *fakeStore) Insert(_ context.Context, a Assignment) error {
	f.assignments[a.ID] = a
	return nil
}

func (f *fakeStore) MutateStatusMap(_ context.Context, id string, mutate func(m map[string]Entry) (map[string]Entry, bool, error)) (*Assignment, error) {
	if f.beforeMutate != nil {
		f.beforeMutate(f)
	}
	a, ok := f.assignments[id]
	if !ok {
		return nil, nil
	}
	m := make(map[string]Entry, len(a.StatusMap))
	for k, v := range a.StatusMap {
		m[k] = v
	}
	next, write, err := mutate(m)
	if err != nil {
		return nil, err
	}
	a.StatusMap = next
	if write {
		f.assignments[id] = a
	}
	return &a, nil
}

func (f *fakeStore) SetEntry(_ context.Context, id, studentID string, e Entry) error {
	a, ok := f.assignments[id]
	if !ok {
		return ErrNotFound
	}
	a.StatusMap[studentID] = e
	f.assignments[id] = a
	return nil
}

// fakeRoster yields a fixed attendee list.
type fakeRoster struct {
	attendees []roster.Attendee
}

func (f *fakeRoster) List(_ context.Context) ([]roster.Attendee, error) {
	return f.attendees, nil
}

func attendees(ids ...string) []roster.Attendee {
	var res []roster.Attendee
	for _, id := range ids {
		res = append(res, roster.Attendee{ID: id, Name: "n-" + id, Email: id + "@x.com"})
	}
	return res
}

func TestCreateSnapshotsRoster(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2")}
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	a, err := svc.Create(ctx, "Essay 1", "", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(a.StatusMap) != 2 {
		t.Fatalf("status map size = %d, want 2", len(a.StatusMap))
	}
	for id, entry := range a.StatusMap {
		if entry.Status != StatusAssigned {
			t.Errorf("entry %s status = %s, want assigned", id, entry.Status)
		}
	}
}

func TestSyncRosterAddsOnlyMissing(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2")}
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	a, err := svc.Create(ctx, "Essay 1", "", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// roster grows; the snapshot must not
	r.attendees = attendees("s1", "s2", "s3")
	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.StatusMap) != 2 {
		t.Fatalf("status map drifted without sync: %d entries", len(got.StatusMap))
	}

	s1Before := got.StatusMap["s1"]

	synced, err := svc.SyncRoster(ctx, a.ID)
	if err != nil {
		t.Fatalf("SyncRoster() error = %v", err)
	}
	if len(synced.StatusMap) != 3 {
		t.Fatalf("status map size after sync = %d, want 3", len(synced.StatusMap))
	}
	if synced.StatusMap["s3"].Status != StatusAssigned {
		t.Errorf("s3 status = %s, want assigned", synced.StatusMap["s3"].Status)
	}
	if synced.StatusMap["s1"] != s1Before {
		t.Errorf("existing entry changed by sync: %+v vs %+v", synced.StatusMap["s1"], s1Before)
	}
}

func TestSyncRosterIdempotent(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2")}
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "Essay 1", "", nil)

	first, err := svc.SyncRoster(ctx, a.ID)
	if err != nil {
		t.Fatalf("first SyncRoster() error = %v", err)
	}
	second, err := svc.SyncRoster(ctx, a.ID)
	if err != nil {
		t.Fatalf("second SyncRoster() error = %v", err)
	}
	if len(first.StatusMap) != len(second.StatusMap) {
		t.Fatalf("sync not idempotent: %d vs %d entries", len(first.StatusMap), len(second.StatusMap))
	}
	for id, entry := range first.StatusMap {
		if second.StatusMap[id] != entry {
			t.Errorf("entry %s changed on repeat sync", id)
		}
	}
}

func TestSyncRosterNeverRemoves(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2")}
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "Essay 1", "", nil)

	// s2 leaves the roster; the status map keeps the entry
	r.attendees = attendees("s1")
	synced, err := svc.SyncRoster(ctx, a.ID)
	if err != nil {
		t.Fatalf("SyncRoster() error = %v", err)
	}
	if _, ok := synced.StatusMap["s2"]; !ok {
		t.Errorf("sync removed an existing entry")
	}
}

func TestSyncRosterKeepsEntryWrittenMeanwhile(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2")}
	store := newFakeStore()
	svc := NewService(store, r)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "Essay 1", "", nil)

	// a grade lands between the handler reading the assignment and the
	// sync writing; the mutation must apply over the fresh map, not a
	// stale snapshot
	r.attendees = attendees("s1", "s2", "s3")
	store.beforeMutate = func(f *fakeStore) {
		f.beforeMutate = nil
		_ = f.SetEntry(ctx, a.ID, "s2", Entry{Status: StatusGraded, Grade: "B+", UpdatedAt: time.Now()})
	}

	synced, err := svc.SyncRoster(ctx, a.ID)
	if err != nil {
		t.Fatalf("SyncRoster() error = %v", err)
	}
	if got := synced.StatusMap["s2"]; got.Status != StatusGraded || got.Grade != "B+" {
		t.Errorf("sync clobbered a concurrent grade: %+v", got)
	}
	if synced.StatusMap["s3"].Status != StatusAssigned {
		t.Errorf("sync missed the new attendee")
	}
}

func TestBulkSetStatus(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2", "s3")}
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "Essay 1", "", nil)

	got, err := svc.BulkSetStatus(ctx, a.ID, StatusSubmitted)
	if err != nil {
		t.Fatalf("BulkSetStatus() error = %v", err)
	}
	for id, entry := range got.StatusMap {
		if entry.Status != StatusSubmitted {
			t.Errorf("entry %s = %s, want submitted", id, entry.Status)
		}
	}

	if _, err := svc.BulkSetStatus(ctx, a.ID, "late"); err == nil {
		t.Errorf("unknown status accepted")
	}
}

func TestSaveStatusMapStampsOnlyChanges(t *testing.T) {
	r := &fakeRoster{attendees: attendees("s1", "s2")}
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "Essay 1", "", nil)
	before := a.StatusMap["s1"].UpdatedAt

	time.Sleep(5 * time.Millisecond)

	edit := map[string]Entry{
		"s1": {Status: StatusAssigned},                // identical content
		"s2": {Status: StatusGraded, Grade: "A"},      // changed
		"s3": {Status: StatusAssigned, Note: "late?"}, // new
	}
	got, err := svc.SaveStatusMap(ctx, a.ID, edit)
	if err != nil {
		t.Fatalf("SaveStatusMap() error = %v", err)
	}
	if !got.StatusMap["s1"].UpdatedAt.Equal(before) {
		t.Errorf("unchanged entry got a fresh timestamp")
	}
	if !got.StatusMap["s2"].UpdatedAt.After(before) {
		t.Errorf("changed entry kept its old timestamp")
	}
	if got.StatusMap["s3"].UpdatedAt.IsZero() {
		t.Errorf("new entry missing timestamp")
	}
}

func TestGetMissing(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeRoster{})
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing = %v, want ErrNotFound", err)
	}
}
