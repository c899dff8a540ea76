package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bookshelf-app/server/internal/auth"
	"github.com/bookshelf-app/server/internal/store"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Upsert(ctx context.Context, user types.User) (types.User, error)
}

// SignupInput carries the fields of the signup form.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Session is an issued session token with the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      types.User
}

// UserService encapsulates account and login use-cases.
type UserService struct {
	repo     UserRepository
	hasher   *auth.PasswordHasher
	sessions *auth.Sessions

	decoyOnce sync.Once
	decoyHash string
}

func NewUserService(repo UserRepository, hasher *auth.PasswordHasher, sessions *auth.Sessions) *UserService {
	return &UserService{repo: repo, hasher: hasher, sessions: sessions}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail looks a user up. A missing user is reported through found,
// never as an error.
func (s *UserService) FindByEmail(ctx context.Context, email string) (types.User, bool, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, false, nil
		}
		return types.User{}, false, unavailable(err)
	}
	return user, true, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, unavailable(err)
	}
	return user, nil
}

// Signup validates the form, hashes the password and stores the account.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	user, err := s.prepare(in)
	if err != nil {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, unavailable(err)
	}
	return created, nil
}

// Ensure creates the account or resets its name and password.
func (s *UserService) Ensure(ctx context.Context, in SignupInput) (types.User, error) {
	user, err := s.prepare(in)
	if err != nil {
		return types.User{}, err
	}
	stored, err := s.repo.Upsert(ctx, user)
	if err != nil {
		return types.User{}, unavailable(err)
	}
	return stored, nil
}

// Login checks credentials and issues a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	user, found, err := s.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if !found {
		s.hasher.Verify(password, s.decoy())
		return Session{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.sessions.Issue(user.ID, user.Name)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *UserService) prepare(in SignupInput) (types.User, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	if name == "" {
		return types.User{}, invalid("name", "name is required")
	}
	if email == "" {
		return types.User{}, invalid("email", "email is required")
	}
	if at := strings.Index(email, "@"); at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return types.User{}, invalid("email", "email is invalid")
	}
	if len(in.Password) < MinPasswordLength {
		return types.User{}, invalid("password", "password must be at least 6 characters")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return types.User{}, invalid("password", "password must be at most 72 bytes")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, err
	}
	return types.User{Name: name, Email: email, PasswordHash: hash}, nil
}

// decoy is a hash verified against when the email is unknown so both
// failure paths cost one bcrypt comparison.
func (s *UserService) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.decoyHash
}
