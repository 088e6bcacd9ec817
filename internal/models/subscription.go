package models

import "time"

// Subscription lifecycle states.
const (
	// SubscriptionStatusActive marks a subscription in use.
	SubscriptionStatusActive = "active"
	// SubscriptionStatusPaused marks a temporarily suspended subscription.
	SubscriptionStatusPaused = "paused"
	// SubscriptionStatusCancelled marks a terminated subscription.
	SubscriptionStatusCancelled = "cancelled"
)

// Billing cycle identifiers accepted on subscriptions and requests.
const (
	// BillingCycleMonthly renews every month.
	BillingCycleMonthly = "monthly"
	// BillingCycleQuarterly renews every three months.
	BillingCycleQuarterly = "quarterly"
	// BillingCycleHalfYearly renews every six months.
	BillingCycleHalfYearly = "half-yearly"
	// BillingCycleYearly renews every year.
	BillingCycleYearly = "yearly"
)

// Subscription records one tracked SaaS subscription.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ReferenceNumber string `gorm:"type:text;not null;uniqueIndex"` // Human-readable ID, e.g. SUB-2026-014.

	Name     string `gorm:"type:text;not null"` // Subscription name.
	Provider string `gorm:"type:text"`          // Vendor or provider name.

	CategoryID uint64    `gorm:"not null;index"`        // Related category ID.
	Category   *Category `gorm:"foreignKey:CategoryID"` // Related category record.

	Cost       float64   `gorm:"type:decimal(12,2);not null"` // Cost per billing cycle.
	CurrencyID uint64    `gorm:"not null;index"`              // Related currency ID.
	Currency   *Currency `gorm:"foreignKey:CurrencyID"`       // Related currency record.

	BillingCycle  string `gorm:"type:text;not null;default:monthly"` // Renewal cadence.
	PaymentMethod string `gorm:"type:text;not null;default:other"`   // Payment instrument.

	StartDate       time.Time `gorm:"not null"`       // When the subscription began.
	NextRenewalDate time.Time `gorm:"not null;index"` // Next renewal due date.

	Status string `gorm:"type:text;not null;default:active;index"` // Lifecycle state.

	NotificationEnabled    bool       `gorm:"not null;default:true"` // Whether renewal reminders are sent.
	NotificationDaysBefore int        `gorm:"not null;default:7"`    // Reminder lead time in days.
	LastNotifiedAt         *time.Time ``                             // Last reminder timestamp.

	OwnerEmail string `gorm:"type:text"` // Employee responsible for the subscription.
	Notes      string `gorm:"type:text"` // Free-form notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
