package models

import "time"

// Currency stores an ISO currency with its exchange rate to the reporting
// base. Rates are refreshed by the weekly exchange-rate job.
type Currency struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code   string `gorm:"type:text;not null;uniqueIndex"` // ISO 4217 code, upper case.
	Name   string `gorm:"type:text;not null"`             // Display name.
	Symbol string `gorm:"type:text"`                      // Display symbol.

	RateToBase float64 `gorm:"type:decimal(18,8);not null;default:1"` // Units of base currency per unit.

	IsActive      bool       `gorm:"not null;default:true"` // Whether the currency is selectable.
	RateUpdatedAt *time.Time ``                             // Last rate refresh timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Category groups subscriptions for reporting.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null;uniqueIndex"` // Unique category name.
	Description string `gorm:"type:text"`                      // Optional description.

	IsActive bool `gorm:"not null;default:true"` // Whether the category is selectable.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
