package models

import "time"

// Subscription request lifecycle states.
const (
	// RequestStatusPending marks a request awaiting review.
	RequestStatusPending = "pending"
	// RequestStatusApproved marks an approved request (terminal).
	RequestStatusApproved = "approved"
	// RequestStatusRejected marks a rejected request (terminal).
	RequestStatusRejected = "rejected"
)

// SubscriptionRequest records an employee's request for a new subscription.
// Approval materializes a Subscription; the request itself stays as an
// immutable historical record.
type SubscriptionRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ReferenceNumber string `gorm:"type:text;not null;uniqueIndex"` // Human-readable ID, e.g. REQ-2026-003.

	RequesterName  string `gorm:"type:text;not null"`       // Submitting employee's name.
	RequesterEmail string `gorm:"type:text;not null;index"` // Submitting employee's email.

	Name          string `gorm:"type:text;not null"` // Requested subscription name.
	Provider      string `gorm:"type:text"`          // Vendor or provider name.
	Justification string `gorm:"type:text"`          // Why the subscription is needed.

	CategoryID uint64    `gorm:"not null;index"`        // Related category ID.
	Category   *Category `gorm:"foreignKey:CategoryID"` // Related category record.

	Cost       float64   `gorm:"type:decimal(12,2);not null"` // Expected cost per billing cycle.
	CurrencyID uint64    `gorm:"not null;index"`              // Related currency ID.
	Currency   *Currency `gorm:"foreignKey:CurrencyID"`       // Related currency record.

	BillingCycle string `gorm:"type:text;not null;default:monthly"` // Requested renewal cadence.

	Status     string     `gorm:"type:text;not null;default:pending;index"` // Workflow state.
	AdminNotes string     `gorm:"type:text"`                                // Reviewer notes or rejection reason.
	ReviewedBy string     `gorm:"type:text"`                                // Reviewer identity.
	ReviewedAt *time.Time ``                                                // Review timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
