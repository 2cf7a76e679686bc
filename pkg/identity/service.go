package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/filevault/pkg/logger"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxUsernameLength = 64
)

// Storage defines the persistence operations required by the identity service.
// CreateUser must enforce username uniqueness atomically and return
// ErrUsernameTaken on conflict; check-then-act in the service would race.
type Storage interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
}

// Service provides registration and credential verification.
type Service struct {
	storage    Storage
	bcryptCost int
	dummyHash  []byte
	log        *slog.Logger
}

// Option configures the identity service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates an identity service backed by storage.
func NewService(storage Storage, opts ...Option) *Service {
	s := &Service{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		log:        logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Hash a fixed throwaway password at the configured cost so failed
	// lookups in Authenticate can burn an equivalent comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("filevault-timing-pad"), s.bcryptCost)
	if err != nil {
		panic(fmt.Errorf("identity: invalid bcrypt cost %d: %w", s.bcryptCost, err))
	}
	s.dummyHash = dummy

	return s
}

// Register creates a new user with a salted bcrypt hash of password.
// The user record including the hash is persisted as a single atomic write;
// uniqueness is enforced by the storage layer.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return User{}, err
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.InfoContext(ctx, "user registered",
		logger.UserID(user.ID.String()),
		logger.Component("identity"),
	)

	return user, nil
}

// Authenticate verifies username and password and returns a session token.
// Any failure yields ErrInvalidCredentials; the unknown-username path still
// performs a bcrypt comparison so both failure modes take similar time.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Session, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		// Still burn a comparison; invalid input must not be a fast path.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return Session{UserID: user.ID, Username: user.Username}, nil
}

// Lookup resolves a user id to its record. Used by the sharing engine to
// find the owner's contact identifier for notifications.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (User, error) {
	return s.storage.GetUserByID(ctx, id)
}

// LookupByUsername resolves a username to its record. Used by the sharing
// engine to resolve grantees.
func (s *Service) LookupByUsername(ctx context.Context, username string) (User, error) {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return s.storage.GetUserByUsername(ctx, normalized)
}

// NormalizeUsername trims, lowercases and validates a username.
// Usernames double as namespace identifiers, so path separator characters
// and whitespace are rejected outright.
func NormalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(username) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	if username == "." || username == ".." {
		return "", ErrInvalidUsername
	}
	for _, r := range username {
		if r == '/' || r == '\\' || r == 0 || unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", ErrInvalidUsername
		}
	}
	return username, nil
}
