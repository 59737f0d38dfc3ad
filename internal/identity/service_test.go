package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"classadmin/internal/auth"
	"classadmin/internal/roster"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	users  map[string]User
	hashes map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]User{}, hashes: map[string]string{}}
}

func (f *fakeStore) GetByUID(_ context.Context, uid string) (*User, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*User, string, error) {
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, f.hashes[u.UID], nil
		}
	}
	return nil, "", nil
}

func (f *fakeStore) Insert(_ context.Context, u User, passwordHash string) error {
	f.users[u.UID] = u
	f.hashes[u.UID] = passwordHash
	return nil
}

func (f *fakeStore) ClearStudentLink(_ context.Context, uid string) error {
	u, ok := f.users[uid]
	if !ok {
		return nil
	}
	u.StudentID = ""
	f.users[uid] = u
	return nil
}

// fakeRoster is an in-memory Roster.
type fakeRoster struct {
	attendees map[string]roster.Attendee
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{attendees: map[string]roster.Attendee{}}
}

func (f *fakeRoster) Add(_ context.Context, name, email string) (roster.Attendee, error) {
	a := roster.Attendee{ID: uuid.NewString(), Name: name, Email: email}
	f.attendees[a.ID] = a
	return a, nil
}

func (f *fakeRoster) FindByEmail(_ context.Context, email string) (*roster.Attendee, error) {
	for _, a := range f.attendees {
		if a.Email == email {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeRoster) Get(_ context.Context, id string) (*roster.Attendee, error) {
	a, ok := f.attendees[id]
	if !ok {
		return nil, roster.ErrNotFound
	}
	return &a, nil
}

func TestSignUpStudentCreatesRosterEntry(t *testing.T) {
	r := newFakeRoster()
	svc := NewService(newFakeStore(), r)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "jane@x.com", "secret1", auth.RoleStudent, "Jane")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if u.Role != auth.RoleStudent || u.StudentID == "" {
		t.Fatalf("user = %+v, want linked student", u)
	}
	if _, ok := r.attendees[u.StudentID]; !ok {
		t.Errorf("no roster entry created for student signup")
	}
}

func TestSignUpStudentAdoptsExistingAttendee(t *testing.T) {
	r := newFakeRoster()
	existing, _ := r.Add(context.Background(), "Jane", "jane@x.com")
	svc := NewService(newFakeStore(), r)

	u, err := svc.SignUp(context.Background(), "jane@x.com", "secret1", auth.RoleStudent, "")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if u.StudentID != existing.ID {
		t.Errorf("StudentID = %s, want existing attendee %s", u.StudentID, existing.ID)
	}
	if len(r.attendees) != 1 {
		t.Errorf("duplicate roster entry created")
	}
}

func TestSignUpRejectsDuplicateAndBadRole(t *testing.T) {
	svc := NewService(newFakeStore(), newFakeRoster())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "t@x.com", "secret1", auth.RoleTeacher, ""); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := svc.SignUp(ctx, "t@x.com", "secret1", auth.RoleTeacher, ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate signup = %v, want ErrEmailTaken", err)
	}
	if _, err := svc.SignUp(ctx, "x@x.com", "secret1", "admin", ""); err == nil {
		t.Errorf("unknown role accepted")
	}
}

func TestSignIn(t *testing.T) {
	svc := NewService(newFakeStore(), newFakeRoster())
	ctx := context.Background()

	created, err := svc.SignUp(ctx, "t@x.com", "secret1", auth.RoleTeacher, "")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	u, err := svc.SignIn(ctx, "t@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if u.UID != created.UID {
		t.Errorf("signed in as %s, want %s", u.UID, created.UID)
	}

	if _, err := svc.SignIn(ctx, "t@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@x.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestResolve(t *testing.T) {
	store := newFakeStore()
	r := newFakeRoster()
	svc := NewService(store, r)
	ctx := context.Background()

	// missing profile resolves to nil, nil: signed out, not an error
	p, err := svc.Resolve(ctx, "ghost")
	if err != nil || p != nil {
		t.Errorf("Resolve(missing) = %v, %v; want nil, nil", p, err)
	}

	u, err := svc.SignUp(ctx, "jane@x.com", "secret1", auth.RoleStudent, "Jane")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	p, err = svc.Resolve(ctx, u.UID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p == nil || p.Student == nil || p.Student.ID != u.StudentID {
		t.Fatalf("profile = %+v, want linked student", p)
	}
}

func TestResolveBrokenStudentLink(t *testing.T) {
	store := newFakeStore()
	r := newFakeRoster()
	svc := NewService(store, r)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "jane@x.com", "secret1", auth.RoleStudent, "Jane")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	// roster entry disappears underneath the profile
	delete(r.attendees, u.StudentID)

	p, err := svc.Resolve(ctx, u.UID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p == nil {
		t.Fatal("session dropped on broken link, want authenticated profile")
	}
	if p.Student != nil || p.User.StudentID != "" {
		t.Errorf("broken link not cleared: %+v", p)
	}
	if store.users[u.UID].StudentID != "" {
		t.Errorf("stored profile link not cleared")
	}
}
