package domain

import "time"

// Toast is a transient notification outside any task transcript.
type Toast struct {
	ID        string    `json:"id"`
	Kind      Severity  `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
