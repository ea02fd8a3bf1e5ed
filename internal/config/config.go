package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`
	AppEnv  string `mapstructure:"APP_ENV"` // "development" or "production"

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	JWTSecret       string `mapstructure:"JWT_SECRET"`
	RecaptchaSecret string `mapstructure:"RECAPTCHA_SECRET"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `mapstructure:"GOOGLE_CALLBACK_URL"`

	FrontendURL string `mapstructure:"FRONTEND_URL"`
}

// LoadConfig loads configuration from environment variables using Viper.
//
// Only values the process cannot run without are validated here. The
// reCAPTCHA secret and the Google OAuth client are deliberately not required:
// their absence degrades the corresponding endpoints at request time (signup
// answers with a configuration error, the Google routes are not registered)
// instead of blocking startup.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("GOOGLE_CALLBACK_URL", "http://localhost:8080/api/auth/google/callback")

	viper.BindEnv("PORT")
	viper.BindEnv("GIN_MODE")
	viper.BindEnv("APP_ENV")
	viper.BindEnv("FIREBASE_PROJECT_ID")
	viper.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("RECAPTCHA_SECRET")
	viper.BindEnv("GOOGLE_CLIENT_ID")
	viper.BindEnv("GOOGLE_CLIENT_SECRET")
	viper.BindEnv("GOOGLE_CALLBACK_URL")
	viper.BindEnv("FRONTEND_URL")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	// Refusing to start beats signing session tokens with an empty key.
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return &cfg, nil
}

// IsProduction reports whether the deployment mode is production-like.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// GoogleOAuthEnabled reports whether the Google OAuth client is configured.
// When false, the Google auth routes are not registered at all.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// AllowedOrigins returns the browser origins permitted to receive
// credentialed responses. In production the list is exactly FRONTEND_URL; an
// unset FRONTEND_URL yields an empty list, which the CORS middleware treats
// as "reject every cross-origin request". In development a couple of common
// local dev servers are allowed as a fallback.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL != "" {
		return []string{strings.TrimRight(c.FrontendURL, "/")}
	}
	if c.IsProduction() {
		return nil
	}
	return []string{"http://localhost:5173", "http://localhost:3000"}
}
