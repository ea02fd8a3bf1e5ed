package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"spendwise-backend-go/internal/db"
	"spendwise-backend-go/internal/models"
)

// ErrUserNotFound is returned when a user lookup by ID finds nothing.
var ErrUserNotFound = errors.New("user not found")

// authService implements the AuthService interface.
type authService struct {
	users   db.UserRepository
	captcha CaptchaVerifier
	tokens  *TokenService
	logger  *zap.Logger
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(users db.UserRepository, captcha CaptchaVerifier, tokens *TokenService, logger *zap.Logger) AuthService {
	return &authService{
		users:   users,
		captcha: captcha,
		tokens:  tokens,
		logger:  logger,
	}
}

// NormalizeEmail lowercases and trims an email address. Every lookup, write
// and duplicate check goes through this one form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a password-based account. The captcha gate must accept
// before any store access happens.
func (s *authService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, string, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" || req.CaptchaToken == "" {
		return nil, "", ErrMissingFields
	}

	if err := s.captcha.Verify(ctx, req.CaptchaToken); err != nil {
		return nil, "", err
	}

	email := NormalizeEmail(req.Email)
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailInUse
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check for existing email: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The store-level uniqueness constraint caught a concurrent signup
		// for the same address between our lookup and the insert.
		if errors.Is(err, db.ErrEmailTaken) {
			return nil, "", ErrEmailInUse
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, token, nil
}

// Login authenticates a password-based account. An unknown email and a wrong
// password collapse into the single ErrInvalidCredentials outcome.
func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	if req.Email == "" || req.Password == "" {
		return nil, "", ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user.PasswordHash == "" || !CheckPassword(req.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return user, token, nil
}

// ResolveGoogleUser maps a verified Google profile to exactly one canonical
// account, creating or linking as needed, and issues a session token for it.
//
// Resolution order is load-bearing:
//  1. match by Google subject ID, so an email change at the provider cannot
//     fork a second account;
//  2. match by normalized email, so a prior local signup gets linked instead
//     of duplicated;
//  3. create a new record.
//
// Exactly one write (update or insert) happens per call. If a concurrent
// callback wins the insert race for a brand-new email, the store rejects our
// insert and resolution is retried once from step 1.
func (s *authService) ResolveGoogleUser(ctx context.Context, profile models.GoogleProfile) (*models.User, string, error) {
	if profile.ID == "" || profile.Email == "" {
		return nil, "", ErrProfileIncomplete
	}
	profile.Email = NormalizeEmail(profile.Email)

	user, err := s.resolveGoogleProfile(ctx, profile)
	if errors.Is(err, db.ErrEmailTaken) {
		s.logger.Warn("lost insert race during Google reconciliation, retrying resolution",
			zap.String("email", profile.Email))
		user, err = s.resolveGoogleProfile(ctx, profile)
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return user, token, nil
}

func (s *authService) resolveGoogleProfile(ctx context.Context, profile models.GoogleProfile) (*models.User, error) {
	// Step 1: the subject ID already belongs to an account.
	user, err := s.users.GetByGoogleID(ctx, profile.ID)
	if err == nil {
		refreshProfileFields(user, profile)
		user.UpdatedAt = time.Now().UTC()
		if updateErr := s.users.Update(ctx, user); updateErr != nil {
			return nil, fmt.Errorf("failed to refresh linked user: %w", updateErr)
		}
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user by googleId: %w", err)
	}

	// Step 2: an account with this email exists (local signup or an earlier
	// different-provider flow); link it. Password login stays authoritative,
	// so a password-holding record keeps provider "local".
	user, err = s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		user.GoogleID = profile.ID
		if user.PasswordHash == "" {
			user.Provider = models.ProviderGoogle
		}
		refreshProfileFields(user, profile)
		user.UpdatedAt = time.Now().UTC()
		if updateErr := s.users.Update(ctx, user); updateErr != nil {
			return nil, fmt.Errorf("failed to link user: %w", updateErr)
		}
		s.logger.Info("linked Google identity to existing account", zap.String("user_id", user.ID))
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	// Step 3: brand-new identity.
	name := profile.Name
	if name == "" {
		name = localPart(profile.Email)
	}
	user = &models.User{
		Email:     profile.Email,
		Name:      name,
		GoogleID:  profile.ID,
		Avatar:    profile.Picture,
		Provider:  models.ProviderGoogle,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// db.ErrEmailTaken propagates so the caller can retry resolution.
		return nil, err
	}
	s.logger.Info("created user from Google profile", zap.String("user_id", user.ID))
	return user, nil
}

// GetByID retrieves a user by its opaque identifier.
func (s *authService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: id '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s': %w", userID, err)
	}
	return user, nil
}

// refreshProfileFields copies the display name and picture from the incoming
// profile onto the record when the provider supplied them.
func refreshProfileFields(user *models.User, profile models.GoogleProfile) {
	if profile.Name != "" {
		user.Name = profile.Name
	}
	if profile.Picture != "" {
		user.Avatar = profile.Picture
	}
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
