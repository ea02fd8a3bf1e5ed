package models

// SignupRequest represents the request body for POST /api/auth/signup.
// Field presence is validated in the service layer so that the missing-field
// response shape matches the login path; no gin binding:"required" tags here.
type SignupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

// LoginRequest represents the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
