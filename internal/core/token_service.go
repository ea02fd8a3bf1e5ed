package core

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionTTL is the lifetime of an issued session token and of the matching
// cookie set by the API layer.
const sessionTTL = 7 * 24 * time.Hour

// SessionClaims is the JWT claims structure for session tokens.
type SessionClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies signed, time-bounded session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. It fails when the signing secret is
// empty; startup must abort rather than sign with an absent key.
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: signing secret is empty")
	}
	return &TokenService{secret: []byte(secret), ttl: sessionTTL}, nil
}

// Issue produces a signed HS256 token encoding the user identifier.
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates a session token and returns the user identifier it encodes.
func (s *TokenService) Parse(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.UserID == "" {
		return "", errors.New("invalid token")
	}
	return claims.UserID, nil
}

// TTL returns the configured session lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }
