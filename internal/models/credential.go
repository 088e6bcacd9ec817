package models

import "time"

// Credential audit actions.
const (
	// AuditActionViewed records a credential reveal in the UI.
	AuditActionViewed = "viewed"
	// AuditActionCopied records a credential copy to clipboard.
	AuditActionCopied = "copied"
	// AuditActionUpdated records a credential create or update.
	AuditActionUpdated = "updated"
)

// Credential stores the encrypted login for a subscription. At most one
// credential exists per subscription.
type Credential struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SubscriptionID uint64        `gorm:"not null;uniqueIndex"`      // Owning subscription ID.
	Subscription   *Subscription `gorm:"foreignKey:SubscriptionID"` // Owning subscription record.

	Username   string `gorm:"type:text;not null"` // Account username, stored in the clear.
	Ciphertext string `gorm:"type:text;not null"` // Encrypted password, base64(nonce || sealed).
	Notes      string `gorm:"type:text"`          // Free-form notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CredentialAudit is an append-only record of every credential access or
// mutation. SubscriptionName is denormalized so entries survive deletion of
// the subscription.
type CredentialAudit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SubscriptionID   uint64 `gorm:"not null;index"`     // Related subscription ID.
	SubscriptionName string `gorm:"type:text;not null"` // Subscription name at access time.

	Action      string    `gorm:"type:text;not null"` // One of viewed, copied, updated.
	PerformedBy string    `gorm:"type:text;not null"` // Admin identity.
	PerformedAt time.Time `gorm:"not null;index"`     // Access timestamp.
}
