// Package oauth turns an OAuth2 authorization code into a verified external
// identity profile. The reconciler in internal/core depends only on the
// resulting tuple, so any OAuth2-class provider can slot in behind the
// Exchanger interface.
package oauth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"spendwise-backend-go/internal/config"
	"spendwise-backend-go/internal/core"
	"spendwise-backend-go/internal/models"
)

// exchangeTimeout bounds the code-exchange and userinfo calls so a hung
// provider cannot block the callback request indefinitely.
const exchangeTimeout = 10 * time.Second

// Exchanger is the external identity verifier capability: it produces the
// provider consent URL and redeems callback codes for verified profiles.
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.GoogleProfile, error)
}

// googleExchanger implements Exchanger against Google's OAuth2 endpoints.
type googleExchanger struct {
	config *oauth2.Config
	logger *zap.Logger
}

// NewGoogleExchanger builds an Exchanger from the configured Google client.
// Callers must only construct it when cfg.GoogleOAuthEnabled() is true.
func NewGoogleExchanger(cfg *config.Config, logger *zap.Logger) Exchanger {
	return &googleExchanger{
		config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// AuthCodeURL returns the Google consent page URL carrying the given
// anti-forgery state nonce.
func (g *googleExchanger) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Exchange redeems an authorization code and fetches the userinfo document
// for the resulting token. Both calls share one bounded deadline.
func (g *googleExchanger) Exchange(ctx context.Context, code string) (*models.GoogleProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		g.logger.Error("Google code exchange failed", zap.Error(err))
		return nil, &core.UpstreamError{Service: "google oauth", Err: err}
	}

	svc, err := oauth2api.NewService(ctx,
		option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, &core.UpstreamError{Service: "google oauth", Err: err}
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		g.logger.Error("Google userinfo fetch failed", zap.Error(err))
		return nil, &core.UpstreamError{Service: "google oauth", Err: err}
	}

	return &models.GoogleProfile{
		ID:      info.Id,
		Email:   core.NormalizeEmail(info.Email),
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
