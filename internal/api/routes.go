package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendwise-backend-go/internal/config"
	"spendwise-backend-go/internal/core"
	"spendwise-backend-go/internal/middleware"
	"spendwise-backend-go/internal/oauth"
)

// SetupRoutes configures all application routes. Global middleware (logging,
// recovery, CORS) is applied to the router before this is called, in main.
//
// The Google routes are only registered when the OAuth client is configured;
// with the client absent they 404 instead of failing mid-flow.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	authService core.AuthService,
	tokenService *core.TokenService,
	exchanger oauth.Exchanger,
) {
	authHandler := NewAuthHandler(authService, exchanger, appConfig, logger)
	authMW := middleware.NewAuthMiddleware(tokenService, logger)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "SpendWise API is running"})
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Backend is running!"})
	})

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authMW.VerifyToken(), authHandler.Me)

		if exchanger != nil {
			authGroup.GET("/google", authHandler.GoogleLogin)
			authGroup.GET("/google/callback", authHandler.GoogleCallback)
			authGroup.GET("/google/failure", authHandler.GoogleFailure)
		} else {
			logger.Warn("Google OAuth disabled: missing client ID or secret")
		}
	}

	logger.Info("API routes configured")
}
