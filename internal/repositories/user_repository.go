package repositories

import (
	"context"

	"ledgerpay/internal/models"
)

// UserRepository is the read side of the identity store.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetTokenVersion returns the current session generation for the user.
	GetTokenVersion(ctx context.Context, id uint) (int, error)
}

// UserCache is satisfied by cache.CacheService.
type UserCache interface {
	CacheUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}
