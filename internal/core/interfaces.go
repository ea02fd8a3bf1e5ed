package core

import (
	"context"

	"spendwise-backend-go/internal/models"
)

// AuthService defines the identity operations exposed to the API layer.
// Signup, Login and ResolveGoogleUser return the resolved user together with
// a freshly issued session token.
type AuthService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, string, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error)
	ResolveGoogleUser(ctx context.Context, profile models.GoogleProfile) (*models.User, string, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}
