package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrMissingFields is returned when a required request field is absent.
	ErrMissingFields = errors.New("missing required fields")

	// ErrEmailInUse is returned by signup when the normalized email already
	// belongs to a record. The message never names any other field.
	ErrEmailInUse = errors.New("email already in use")

	// ErrInvalidCredentials is the single outcome for both "no such user"
	// and "wrong password" so that login cannot be used to enumerate
	// accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCaptchaNotConfigured is returned when the reCAPTCHA secret is not
	// set. It maps to a 500-class response so operators can tell a server
	// misconfiguration apart from a rejected captcha.
	ErrCaptchaNotConfigured = errors.New("server configuration error: reCAPTCHA secret key not configured")

	// ErrFrontendURLRequired is returned when the post-auth redirect needs
	// FRONTEND_URL but the deployment runs in production mode without it.
	ErrFrontendURLRequired = errors.New("server configuration error: FRONTEND_URL not set")

	// ErrProfileIncomplete is returned when the OAuth provider did not
	// supply both a subject ID and an email. No record is created or
	// mutated for such a profile.
	ErrProfileIncomplete = errors.New("authentication failed: missing user data")
)

// CaptchaRejectedError is returned when the verification provider rejected
// the captcha token. The provider's reason codes are surfaced to the caller
// for diagnostics.
type CaptchaRejectedError struct {
	Codes []string
}

func (e *CaptchaRejectedError) Error() string {
	if len(e.Codes) == 0 {
		return "captcha validation failed"
	}
	return "captcha validation failed: " + strings.Join(e.Codes, ", ")
}

// Detail returns the provider reason codes as a single string, or a generic
// placeholder when the provider reported none.
func (e *CaptchaRejectedError) Detail() string {
	if len(e.Codes) == 0 {
		return "Unknown error"
	}
	return strings.Join(e.Codes, ", ")
}

// UpstreamError wraps a failure to reach or read an external service (the
// captcha verifier or the OAuth provider). Network failures are fail-closed:
// the guarded operation does not proceed.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
