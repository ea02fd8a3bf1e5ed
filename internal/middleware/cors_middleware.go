package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendwise-backend-go/internal/config"
)

// CORSMiddleware is the origin policy guard. Per request:
//
//   - no Origin header (curl, mobile, server-to-server) → the request passes
//     untouched;
//   - declared origin on the allow-list → allowed, with credentialed
//     responses enabled;
//   - declared origin not on the list → rejected at the transport boundary
//     before any handler runs.
//
// In production the allow-list is exactly FRONTEND_URL. An empty list there
// means every credentialed cross-origin request is rejected; that state is an
// operator error and is logged as such, never widened to an open default.
func CORSMiddleware(appConfig *config.Config, logger *zap.Logger) gin.HandlerFunc {
	allowedOrigins := appConfig.AllowedOrigins()
	if len(allowedOrigins) == 0 {
		if appConfig.IsProduction() {
			logger.Error("FRONTEND_URL not set in production; CORS will reject all cross-origin requests")
		} else {
			logger.Warn("no allowed origins configured; CORS will reject all cross-origin requests")
		}
	}

	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if allowed[origin] {
				return true
			}
			logger.Warn("CORS blocked origin", zap.String("origin", origin))
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
