package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// ErrNotFound covers both a missing subscription and a missing credential so
// responses never reveal which lookup failed.
var ErrNotFound = errors.New("vault: not found")

// ErrDuplicateCredential indicates the subscription already has a credential.
var ErrDuplicateCredential = errors.New("vault: credential already exists for subscription")

// ErrInvalidAction indicates an unsupported audit action on reveal.
var ErrInvalidAction = errors.New("vault: invalid audit action")

// RevealResult carries the decrypted credential returned to the admin.
type RevealResult struct {
	Username  string
	Plaintext string
	Notes     string
}

// Service stores and reveals subscription credentials. Every reveal writes an
// audit row in the same transaction before the plaintext is returned.
type Service struct {
	db     *gorm.DB
	cipher *Cipher
	nowFn  func() time.Time
}

// NewService constructs a vault Service.
func NewService(db *gorm.DB, cipher *Cipher, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{db: db, cipher: cipher, nowFn: nowFn}
}

// Create encrypts and stores a credential for the subscription. At most one
// credential may exist per subscription.
func (s *Service) Create(ctx context.Context, subscriptionID uint64, username, plaintext, notes, performedBy string) (*models.Credential, error) {
	ciphertext, errEncrypt := s.cipher.Encrypt(plaintext)
	if errEncrypt != nil {
		return nil, errEncrypt
	}

	now := s.nowFn().UTC()
	var created models.Credential
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, errSub := loadSubscription(tx, subscriptionID)
		if errSub != nil {
			return errSub
		}

		var existing models.Credential
		errFind := tx.Where("subscription_id = ?", subscriptionID).First(&existing).Error
		if errFind == nil {
			return ErrDuplicateCredential
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("vault: check credential: %w", errFind)
		}

		created = models.Credential{
			SubscriptionID: subscriptionID,
			Username:       username,
			Ciphertext:     ciphertext,
			Notes:          notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if errCreate := tx.Create(&created).Error; errCreate != nil {
			return fmt.Errorf("vault: create credential: %w", errCreate)
		}
		return appendAudit(tx, sub, models.AuditActionUpdated, performedBy, now)
	})
	if errTx != nil {
		return nil, errTx
	}
	return &created, nil
}

// Update re-encrypts and replaces the stored credential fields.
func (s *Service) Update(ctx context.Context, subscriptionID uint64, username, plaintext, notes, performedBy string) error {
	ciphertext, errEncrypt := s.cipher.Encrypt(plaintext)
	if errEncrypt != nil {
		return errEncrypt
	}

	now := s.nowFn().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, errSub := loadSubscription(tx, subscriptionID)
		if errSub != nil {
			return errSub
		}

		res := tx.Model(&models.Credential{}).
			Where("subscription_id = ?", subscriptionID).
			Updates(map[string]any{
				"username":   username,
				"ciphertext": ciphertext,
				"notes":      notes,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("vault: update credential: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return appendAudit(tx, sub, models.AuditActionUpdated, performedBy, now)
	})
}

// Reveal decrypts the credential for an admin. The audit row is durable in
// the same transaction before the plaintext leaves this function; a reveal is
// never observable without its audit entry.
func (s *Service) Reveal(ctx context.Context, subscriptionID uint64, action, performedBy string) (RevealResult, error) {
	if action != models.AuditActionViewed && action != models.AuditActionCopied {
		return RevealResult{}, ErrInvalidAction
	}

	now := s.nowFn().UTC()
	var result RevealResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, errSub := loadSubscription(tx, subscriptionID)
		if errSub != nil {
			return errSub
		}

		var credential models.Credential
		errFind := tx.Where("subscription_id = ?", subscriptionID).First(&credential).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("vault: load credential: %w", errFind)
		}

		plaintext, errDecrypt := s.cipher.Decrypt(credential.Ciphertext)
		if errDecrypt != nil {
			return errDecrypt
		}

		if errAudit := appendAudit(tx, sub, action, performedBy, now); errAudit != nil {
			return errAudit
		}
		result = RevealResult{Username: credential.Username, Plaintext: plaintext, Notes: credential.Notes}
		return nil
	})
	if errTx != nil {
		return RevealResult{}, errTx
	}
	return result, nil
}

// AuditLog lists audit entries for the subscription, newest first.
func (s *Service) AuditLog(ctx context.Context, subscriptionID uint64) ([]models.CredentialAudit, error) {
	var entries []models.CredentialAudit
	if errFind := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("performed_at DESC, id DESC").
		Find(&entries).Error; errFind != nil {
		return nil, fmt.Errorf("vault: list audit log: %w", errFind)
	}
	return entries, nil
}

func loadSubscription(tx *gorm.DB, subscriptionID uint64) (*models.Subscription, error) {
	var sub models.Subscription
	if errFind := tx.First(&sub, subscriptionID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("vault: load subscription: %w", errFind)
	}
	return &sub, nil
}

func appendAudit(tx *gorm.DB, sub *models.Subscription, action, performedBy string, now time.Time) error {
	entry := models.CredentialAudit{
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Action:           action,
		PerformedBy:      performedBy,
		PerformedAt:      now,
	}
	if errCreate := tx.Create(&entry).Error; errCreate != nil {
		return fmt.Errorf("vault: append audit: %w", errCreate)
	}
	return nil
}
