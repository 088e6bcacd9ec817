package models

import "time"

// RateLimitWindow tracks a fixed-window request counter. Key is either the
// literal "global" or "email:<address>". Expired windows are reset in place
// rather than deleted.
type RateLimitWindow struct {
	Key         string    `gorm:"primaryKey;type:text"` // Limiter key.
	WindowStart time.Time `gorm:"not null"`             // Start of the current window.
	Count       int       `gorm:"not null;default:0"`   // Requests counted in the window.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
