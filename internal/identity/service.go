package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classadmin/internal/auth"
	"classadmin/internal/roster"
)

// Store is the persistence surface the service needs.
type Store interface {
	GetByUID(ctx context.Context, uid string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, string, error) // user, password hash
	Insert(ctx context.Context, u User, passwordHash string) error
	ClearStudentLink(ctx context.Context, uid string) error
}

// Roster is the slice of the roster service used during signup and resolve.
type Roster interface {
	Add(ctx context.Context, name, email string) (roster.Attendee, error)
	FindByEmail(ctx context.Context, email string) (*roster.Attendee, error)
	Get(ctx context.Context, id string) (*roster.Attendee, error)
}

// Profile is a resolved session identity.
type Profile struct {
	User    User             `json:"user"`
	Student *roster.Attendee `json:"student,omitempty"`
}

// Service handles accounts and principal resolution.
type Service struct {
	store  Store
	roster Roster
}

// NewService creates an identity service.
func NewService(store Store, r Roster) *Service {
	return &Service{store: store, roster: r}
}

// SignUp creates an account. Student signups are linked to the roster: an
// existing active attendee with the same email is adopted, otherwise a new
// roster entry is created.
func (s *Service) SignUp(ctx context.Context, email, password, role, name string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, fmt.Errorf("%w: email and password required", ErrInvalid)
	}
	if role != auth.RoleTeacher && role != auth.RoleStudent {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
	}
	if existing, _, err := s.store.GetByEmail(ctx, email); err != nil {
		return User{}, err
	} else if existing != nil {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		UID:       uuid.NewString(),
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	if role == auth.RoleStudent {
		attendee, err := s.roster.FindByEmail(ctx, email)
		if err != nil {
			return User{}, err
		}
		if attendee == nil {
			if name == "" {
				name = email
			}
			created, err := s.roster.Add(ctx, name, email)
			if err != nil {
				return User{}, err
			}
			attendee = &created
		}
		u.StudentID = attendee.ID
	}

	if err := s.store.Insert(ctx, u, string(hash)); err != nil {
		return User{}, err
	}
	return u, nil
}

// SignIn verifies the password and returns the account.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

// Resolve maps an authenticated principal to a profile. A missing profile
// yields (nil, nil): the session is treated as signed out. A student whose
// roster link is broken keeps the session; the link is cleared instead.
// Storage failures are returned as errors, not masked as "no profile".
func (s *Service) Resolve(ctx context.Context, uid string) (*Profile, error) {
	u, err := s.store.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	p := Profile{User: *u}
	if u.Role == auth.RoleStudent && u.StudentID != "" {
		attendee, err := s.roster.Get(ctx, u.StudentID)
		if err != nil && !errors.Is(err, roster.ErrNotFound) {
			return nil, err
		}
		if attendee == nil {
			p.User.StudentID = ""
			if err := s.store.ClearStudentLink(ctx, u.UID); err != nil {
				return nil, err
			}
		} else {
			p.Student = attendee
		}
	}
	return &p, nil
}
