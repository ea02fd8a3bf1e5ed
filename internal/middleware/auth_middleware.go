package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendwise-backend-go/internal/core"
)

// ContextUserIDKey is the gin context key under which VerifyToken stores the
// authenticated user's ID.
const ContextUserIDKey = "userID"

// SessionCookieName is the cookie carrying the session token for
// browser-redirect flows.
const SessionCookieName = "token"

// AuthMiddleware guards routes that require an authenticated caller.
type AuthMiddleware struct {
	tokens *core.TokenService
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(tokens *core.TokenService, logger *zap.Logger) *AuthMiddleware {
	if tokens == nil {
		panic("token service is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// VerifyToken validates the session token from the Authorization header or,
// failing that, the session cookie, and stores the user ID in the context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		userID, err := m.tokens.Parse(tokenString)
		if err != nil {
			m.logger.Warn("session token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
