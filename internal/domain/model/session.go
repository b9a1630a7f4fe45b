package model

import "time"

// SessionStatus summarizes what the controller knows about the signed-in user.
type SessionStatus struct {
	Credentialed bool       `json:"credentialed"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// SignUpRequest carries the identity provider's sign-up fields.
type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}
