package model

import "time"

// ActivityLog is a read-only audit entry shown to the user.
type ActivityLog struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
