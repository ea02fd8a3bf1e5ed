package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendwise-backend-go/internal/config"
	"spendwise-backend-go/internal/core"
	"spendwise-backend-go/internal/middleware"
	"spendwise-backend-go/internal/models"
	"spendwise-backend-go/internal/oauth"
)

const (
	// sessionCookieMaxAge matches the token lifetime (7 days).
	sessionCookieMaxAge = 7 * 24 * 60 * 60

	// stateCookieName holds the anti-forgery nonce between the OAuth
	// kickoff redirect and the provider callback.
	stateCookieName   = "oauth_state"
	stateCookieMaxAge = 10 * 60

	devFrontendURL = "http://localhost:5173"
)

// AuthHandler handles the authentication endpoints: local signup/login, the
// Google OAuth flow, session logout and the current-user lookup.
type AuthHandler struct {
	authService core.AuthService
	exchanger   oauth.Exchanger // nil when the Google OAuth client is not configured
	appConfig   *config.Config
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService core.AuthService, exchanger oauth.Exchanger, appConfig *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		exchanger:   exchanger,
		appConfig:   appConfig,
		logger:      logger,
	}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Missing required fields"})
		return
	}

	user, token, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{User: user.Public(), Token: token})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Missing required fields"})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: user.Public(), Token: token})
}

// GoogleLogin handles GET /api/auth/google: it plants a state nonce cookie
// and redirects the browser to the Google consent page.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		h.logger.Error("failed to generate OAuth state nonce", zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieMaxAge, "/", "", h.appConfig.IsProduction(), true)
	c.Redirect(http.StatusFound, h.exchanger.AuthCodeURL(state))
}

// GoogleCallback handles GET /api/auth/google/callback: it checks the state
// nonce, exchanges the authorization code for a verified profile, reconciles
// the profile to one canonical account, and delivers the session both as an
// http-only cookie and inside the front-end redirect URL.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		c.Redirect(http.StatusFound, "/api/auth/google/failure?error="+url.QueryEscape(providerErr))
		return
	}

	state, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || c.Query("state") != state {
		h.logger.Warn("OAuth callback with missing or mismatched state")
		c.JSON(http.StatusUnauthorized, MessageResponse{
			Message: "Google authentication failed. Please try again.",
			Error:   "invalid state",
		})
		return
	}
	// The nonce is single-use.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, "/", "", h.appConfig.IsProduction(), true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Google authentication failed: missing user data"})
		return
	}

	profile, err := h.exchanger.Exchange(c.Request.Context(), code)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	user, token, err := h.authService.ResolveGoogleUser(c.Request.Context(), *profile)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	h.setSessionCookie(c, token)

	redirectURL, err := h.buildFrontendRedirect(token, user.Public())
	if err != nil {
		h.logger.Error("FRONTEND_URL is required in production", zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{
			Message: "Server configuration error: FRONTEND_URL not set",
			Error:   "Please configure FRONTEND_URL environment variable",
		})
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

// GoogleFailure handles GET /api/auth/google/failure.
func (h *AuthHandler) GoogleFailure(c *gin.Context) {
	providerErr := c.Query("error")
	if providerErr == "" {
		providerErr = "Unknown error"
	}
	c.JSON(http.StatusUnauthorized, MessageResponse{
		Message: "Google authentication failed. Please try again.",
		Error:   providerErr,
	})
}

// Logout handles POST /api/auth/logout by clearing the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.appConfig.IsProduction(), true)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me handles GET /api/auth/me for the authenticated caller.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Not authorized"})
		return
	}
	user, err := h.authService.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, MessageResponse{Message: "User not found"})
			return
		}
		h.logger.Error("failed to load current user", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: user.Public()})
}

// setSessionCookie delivers the token for browser flows: http-only,
// same-site restricted, secure when the deployment is production-like.
func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, token, sessionCookieMaxAge, "/", "", h.appConfig.IsProduction(), true)
}

// buildFrontendRedirect composes the post-auth redirect target. The frontend
// base URL is required in production; in development a localhost fallback is
// used when it is unset. A trailing slash on the base URL is stripped so the
// query string never starts with "//?".
func (h *AuthHandler) buildFrontendRedirect(token string, user models.PublicUser) (string, error) {
	frontendURL := h.appConfig.FrontendURL
	if frontendURL == "" {
		if h.appConfig.IsProduction() {
			return "", core.ErrFrontendURLRequired
		}
		h.logger.Warn("FRONTEND_URL not set, using localhost fallback (dev only)")
		frontendURL = devFrontendURL
	}
	frontendURL = strings.TrimRight(frontendURL, "/")

	userJSON, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user for redirect: %w", err)
	}

	return fmt.Sprintf("%s/?token=%s&googleAuth=true&user=%s",
		frontendURL, url.QueryEscape(token), url.QueryEscape(string(userJSON))), nil
}

// respondAuthError maps service-layer errors to HTTP responses. Anything
// outside the known taxonomy is logged and collapsed into a generic 500.
func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	var captchaErr *core.CaptchaRejectedError
	var upstreamErr *core.UpstreamError

	switch {
	case errors.Is(err, core.ErrMissingFields):
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Missing required fields"})
	case errors.Is(err, core.ErrEmailInUse):
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Email already in use"})
	case errors.Is(err, core.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Invalid credentials"})
	case errors.Is(err, core.ErrProfileIncomplete):
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Google authentication failed: missing user data"})
	case errors.Is(err, core.ErrCaptchaNotConfigured):
		c.JSON(http.StatusInternalServerError, MessageResponse{
			Message: "Server configuration error: reCAPTCHA secret key not configured",
		})
	case errors.As(err, &captchaErr):
		c.JSON(http.StatusBadRequest, MessageResponse{
			Message: "Captcha validation failed",
			Detail:  captchaErr.Detail(),
		})
	case errors.As(err, &upstreamErr):
		h.logger.Error("upstream service failure", zap.String("service", upstreamErr.Service), zap.Error(err))
		c.JSON(http.StatusBadGateway, MessageResponse{Message: "Upstream verification service unavailable"})
	default:
		h.logger.Error("unexpected auth error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
