package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores a JSON-valued configuration entry keyed by name.
type Setting struct {
	Key   string         `gorm:"primaryKey;type:text"` // Setting key.
	Value datatypes.JSON `gorm:"type:json"`            // JSON-encoded value.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
