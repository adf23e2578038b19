package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
	"github.com/devconnect/api/pkg/config"
	"github.com/devconnect/api/pkg/crypto"
	"github.com/devconnect/api/pkg/gravatar"
	jwtpkg "github.com/devconnect/api/pkg/jwt"
)

const minPasswordLength = 6

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. Login reports the two identically so callers cannot probe
	// which usernames exist.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrEmailTaken indicates the registration email is already in use.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUsernameTaken indicates the registration username is already in use.
	ErrUsernameTaken = errors.New("username already exists")
)

// Service handles credential issuance and token verification.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// RegisterInput carries the signup payload.
type RegisterInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register validates the payload, enforces credential uniqueness, derives the
// avatar, hashes the password and issues a session token for the new user.
func (s Service) Register(ctx context.Context, input RegisterInput) (string, error) {
	var problems []string
	if strings.TrimSpace(input.Name) == "" {
		problems = append(problems, "Name is required")
	}
	if strings.TrimSpace(input.Username) == "" {
		problems = append(problems, "Username is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		problems = append(problems, "Please include a valid email")
	}
	if len(input.Password) < minPasswordLength {
		problems = append(problems, "Please enter a password with 6 or more characters")
	}
	if err := domain.Validation(problems); err != nil {
		return "", err
	}

	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)

	existing, err := s.users.GetUserByEmailOrUsername(ctx, email, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if existing != nil {
		if existing.Email == email {
			return "", ErrEmailTaken
		}
		return "", ErrUsernameTaken
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return "", err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Username:     username,
		Email:        email,
		Avatar:       gravatar.URL(email),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// The uniqueness probe above races with concurrent signups; the
		// database constraint is the authority.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", ErrEmailTaken
		}
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return "", ErrUsernameTaken
		}
		return "", err
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return token, nil
}

// Login authenticates by username and password and returns a session token.
// Unknown usernames and wrong passwords fail the same way.
func (s Service) Login(ctx context.Context, username, password string) (string, error) {
	var problems []string
	if strings.TrimSpace(username) == "" {
		problems = append(problems, "Username is required")
	}
	if password == "" {
		problems = append(problems, "Password is required")
	}
	if err := domain.Validation(problems); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// VerifyToken checks signature and expiry and returns the embedded user id.
// The claim is never trusted without this verification.
func (s Service) VerifyToken(token string) (string, error) {
	claims, err := jwtpkg.Parse(strings.TrimSpace(token), s.cfg.JWTSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// CurrentUser materializes the authenticated user for the identity echo route.
func (s Service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s Service) issueToken(userID string) (string, error) {
	return jwtpkg.GenerateToken(userID, s.cfg.JWTSecret, s.cfg.SessionTokenTTL)
}
