// Package identity resolves user ids for the ledger. Account management
// beyond creating a user lives elsewhere.
package identity

import (
	"context"
	"errors"
	"strings"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this email already exists")
	ErrEmailMissing = errors.New("email is required")
)

// Identity is what the ledger needs to know about a user.
type Identity struct {
	ID     uint
	Name   string
	Email  string
	Role   string
	Active bool
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string
}

type Service interface {
	Lookup(ctx context.Context, id uint) (*Identity, error)
	// TokenVersion is bumped when a user's sessions are revoked.
	TokenVersion(ctx context.Context, id uint) (int, error)
	Create(ctx context.Context, input CreateUserInput) (*models.User, error)
}

type service struct {
	repo repositories.UserRepository
}

func NewService(repo repositories.UserRepository) Service {
	if repo == nil {
		panic("user repository is required")
	}
	return &service{
		repo: repo,
	}
}

// Lookup returns ErrUserNotFound for unknown and suspended users alike.
func (s *service) Lookup(ctx context.Context, id uint) (*Identity, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Status != "" && user.Status != "active" {
		return nil, ErrUserNotFound
	}
	return &Identity{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Active: true,
	}, nil
}

func (s *service) TokenVersion(ctx context.Context, id uint) (int, error) {
	version, err := s.repo.GetTokenVersion(ctx, id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return 0, ErrUserNotFound
	}
	return version, err
}

func (s *service) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrEmailMissing
	}

	// Check if user already exists
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserExists
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	user := &models.User{
		Name:         input.Name,
		Email:        email,
		Phone:        input.Phone,
		Password:     string(hashedPassword),
		Role:         role,
		Status:       "active",
		TokenVersion: 1,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
