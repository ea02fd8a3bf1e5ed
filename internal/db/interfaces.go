package db

import (
	"context"

	"spendwise-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
//
// Lookup keys match the identity-reconciliation order: provider subject ID
// first, normalized email second. Create enforces email uniqueness at the
// store level and returns ErrEmailTaken for the loser of a concurrent insert.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}
