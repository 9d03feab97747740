// Package auth registers users, verifies credentials and guards roles.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/atharvakonge/papertrade/internal/config"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUnauthenticated    = errors.New("not logged in")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError is a problem with submitted form fields.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

type RegisterInput struct {
	FullName string `form:"full_name" json:"full_name"`
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

const (
	minPasswordLength = 6
	// bcrypt rejects longer input
	maxPasswordBytes = 72

	// column widths of the users table
	maxFullNameLength = 100
	maxUsernameLength = 50
	maxEmailLength    = 100
)

type Service struct {
	repo            *repository.Repository
	sessions        Store
	startingBalance decimal.Decimal
	cost            int
}

func NewService(repo *repository.Repository, sessions Store, startingBalance decimal.Decimal) *Service {
	return &Service{repo: repo, sessions: sessions, startingBalance: startingBalance, cost: bcrypt.DefaultCost}
}

func (s *Service) Sessions() Store { return s.sessions }

// Register creates a user with the starting balance.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := in.validate(); err != nil {
		return models.User{}, err
	}

	usernameTaken, emailTaken, err := s.repo.IdentityTaken(ctx, in.Username, in.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("check identity: %w", err)
	}
	if usernameTaken {
		return models.User{}, ErrUsernameTaken
	}
	if emailTaken {
		return models.User{}, ErrEmailTaken
	}

	return s.create(ctx, in, models.RoleUser, s.startingBalance)
}

func (in RegisterInput) validate() error {
	switch {
	case in.FullName == "":
		return &ValidationError{Field: "full_name", Message: "Full name is required."}
	case in.Username == "":
		return &ValidationError{Field: "username", Message: "Username is required."}
	case in.Email == "":
		return &ValidationError{Field: "email", Message: "Email is required."}
	case utf8.RuneCountInString(in.FullName) > maxFullNameLength:
		return &ValidationError{Field: "full_name", Message: fmt.Sprintf("Full name must be at most %d characters.", maxFullNameLength)}
	case utf8.RuneCountInString(in.Username) > maxUsernameLength:
		return &ValidationError{Field: "username", Message: fmt.Sprintf("Username must be at most %d characters.", maxUsernameLength)}
	case utf8.RuneCountInString(in.Email) > maxEmailLength:
		return &ValidationError{Field: "email", Message: fmt.Sprintf("Email must be at most %d characters.", maxEmailLength)}
	case len(in.Password) < minPasswordLength:
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters.", minPasswordLength)}
	case len(in.Password) > maxPasswordBytes:
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at most %d bytes.", maxPasswordBytes)}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &ValidationError{Field: "email", Message: "Email address is invalid."}
	}
	return nil
}

func (s *Service) create(ctx context.Context, in RegisterInput, role models.Role, balance decimal.Decimal) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		CashBalance:  balance,
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrAlreadyExists) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}
	zap.L().Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(role)))
	return u, nil
}

// Login verifies credentials and opens a session. Unknown users and wrong
// passwords yield the same error.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.sessions.Create(ctx, u)
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// EnsureAdmin creates the configured administrator, or promotes an existing
// user of that name. A zero cfg is a no-op.
func (s *Service) EnsureAdmin(ctx context.Context, cfg config.Admin) error {
	if cfg.Username == "" {
		return nil
	}

	u, err := s.repo.GetUserByUsername(ctx, cfg.Username)
	switch {
	case err == nil:
		if u.IsAdmin() {
			return nil
		}
		zap.L().Info("promoting user to admin", zap.String("username", cfg.Username))
		return s.repo.SetUserRole(ctx, u.ID, models.RoleAdmin)
	case errors.Is(err, repository.ErrNotFound):
		_, err = s.create(ctx, RegisterInput{
			FullName: "Administrator",
			Username: cfg.Username,
			Email:    cfg.Email,
			Password: cfg.Password,
		}, models.RoleAdmin, s.startingBalance)
		return err
	default:
		return err
	}
}

// Authorize checks that sess exists and, when role is admin, that it
// carries that role.
func Authorize(sess *Session, role models.Role) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	if role == models.RoleAdmin && sess.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
