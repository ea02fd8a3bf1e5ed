package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// captchaTimeout bounds the siteverify call so a hung provider cannot block
// a signup request indefinitely. Expiry counts as a gate failure.
const captchaTimeout = 10 * time.Second

// CaptchaVerifier decides whether a client-submitted challenge-response token
// proves human presence. Verification is fail-closed: any outcome other than
// an explicit provider accept rejects the guarded operation.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) error
}

// recaptchaVerifier verifies tokens against Google's reCAPTCHA siteverify
// endpoint.
type recaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewRecaptchaVerifier creates a CaptchaVerifier backed by reCAPTCHA. An
// empty secret is allowed at construction time; Verify then answers every
// call with ErrCaptchaNotConfigured so signup surfaces the misconfiguration
// per request instead of blocking startup.
func NewRecaptchaVerifier(secret string, logger *zap.Logger) CaptchaVerifier {
	return &recaptchaVerifier{
		secret:    secret,
		verifyURL: recaptchaVerifyURL,
		client:    &http.Client{Timeout: captchaTimeout},
		logger:    logger,
	}
}

// siteverifyResponse mirrors the provider's JSON response body.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *recaptchaVerifier) Verify(ctx context.Context, token string) error {
	if v.secret == "" {
		v.logger.Error("RECAPTCHA_SECRET is not set; rejecting signup")
		return ErrCaptchaNotConfigured
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &UpstreamError{Service: "recaptcha", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("reCAPTCHA verification request failed", zap.Error(err))
		return &UpstreamError{Service: "recaptcha", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		v.logger.Error("reCAPTCHA verification returned non-200", zap.Int("status", resp.StatusCode))
		return &UpstreamError{Service: "recaptcha", Err: err}
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &UpstreamError{Service: "recaptcha", Err: err}
	}

	if !body.Success {
		v.logger.Warn("reCAPTCHA validation failed", zap.Strings("error_codes", body.ErrorCodes))
		return &CaptchaRejectedError{Codes: body.ErrorCodes}
	}
	return nil
}
