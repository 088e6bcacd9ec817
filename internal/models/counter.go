package models

import "time"

// Counter stores the last allocated value for named monotonic counters.
// One row exists per "<entityType>-<year>" key; rows are never deleted
// during normal operation.
type Counter struct {
	Name  string `gorm:"primaryKey;type:text"` // Counter key, e.g. "subscription-2026".
	Value int64  `gorm:"not null;default:0"`   // Last allocated value.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
