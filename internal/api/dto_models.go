package api

import "spendwise-backend-go/internal/models"

// AuthResponse is the body returned by signup, login and the /me endpoint.
// The user is always the public projection.
type AuthResponse struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token,omitempty"`
}

// MessageResponse is the generic message body for errors and simple
// confirmations, matching the shape the frontend already consumes.
type MessageResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}
