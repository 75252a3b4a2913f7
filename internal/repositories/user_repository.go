package repositories

import (
	"context"

	"smartbite/internal/models"
)

// UserRepository is the auth account store. The account id is the user id
// carts, profiles and notifications are keyed by.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
