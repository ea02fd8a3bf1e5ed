package models

import "time"

// Provider values recorded on a user. Provider tracks the most recent
// successful authentication path and is informational only: a record that
// carries both a password hash and a Google ID satisfies local and Google
// login regardless of this field.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User represents a user account in the system.
type User struct {
	ID            string    `json:"id" firestore:"-"`        // Firestore document ID
	Email         string    `json:"email" firestore:"email"` // always lowercase
	Name          string    `json:"name" firestore:"name"`
	PasswordHash  string    `json:"-" firestore:"passwordHash,omitempty"` // absent for pure-OAuth accounts
	GoogleID      string    `json:"-" firestore:"googleId,omitempty"`
	Avatar        string    `json:"avatar,omitempty" firestore:"avatar,omitempty"`
	Provider      string    `json:"provider" firestore:"provider"`
	MonthlyIncome float64   `json:"monthlyIncome" firestore:"monthlyIncome"`
	SavingsGoal   float64   `json:"savingsGoal" firestore:"savingsGoal"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt     time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// PublicUser is the projection of User that is safe to return to clients.
// It never carries the password hash or the external provider subject ID.
type PublicUser struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Avatar        string  `json:"avatar,omitempty"`
	Provider      string  `json:"provider"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	SavingsGoal   float64 `json:"savingsGoal"`
}

// Public returns the client-safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Avatar:        u.Avatar,
		Provider:      u.Provider,
		MonthlyIncome: u.MonthlyIncome,
		SavingsGoal:   u.SavingsGoal,
	}
}

// GoogleProfile is the verified identity tuple produced by the OAuth code
// exchange. The reconciler trusts it as already authenticated by Google and
// never re-validates the underlying token.
type GoogleProfile struct {
	ID      string // provider subject identifier
	Email   string
	Name    string
	Picture string
}
