package vault

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrack-hq/subtrack/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.Subscription{}, &models.Credential{}, &models.CredentialAudit{}); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	cipher, errCipher := NewCipher(testKey)
	if errCipher != nil {
		t.Fatalf("new cipher: %v", errCipher)
	}
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return NewService(conn, cipher, func() time.Time { return now }), conn
}

func seedSubscription(t *testing.T, conn *gorm.DB) *models.Subscription {
	t.Helper()
	sub := models.Subscription{
		ReferenceNumber: "SUB-2026-001",
		Name:            "Figma",
		CategoryID:      1,
		CurrencyID:      1,
		Cost:            35,
		BillingCycle:    models.BillingCycleMonthly,
		PaymentMethod:   "card",
		StartDate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NextRenewalDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:          models.SubscriptionStatusActive,
	}
	if errCreate := conn.Create(&sub).Error; errCreate != nil {
		t.Fatalf("seed subscription: %v", errCreate)
	}
	return &sub
}

func TestRevealWritesOneAuditRowPerCall(t *testing.T) {
	service, conn := newTestService(t)
	sub := seedSubscription(t, conn)

	if _, errCreate := service.Create(context.Background(), sub.ID, "ops@corp.test", "hunter2", "", "admin"); errCreate != nil {
		t.Fatalf("create credential: %v", errCreate)
	}

	for i := 1; i <= 3; i++ {
		result, errReveal := service.Reveal(context.Background(), sub.ID, models.AuditActionViewed, "admin")
		if errReveal != nil {
			t.Fatalf("reveal %d: %v", i, errReveal)
		}
		if result.Plaintext != "hunter2" {
			t.Fatalf("expected plaintext hunter2, got %q", result.Plaintext)
		}
		if result.Username != "ops@corp.test" {
			t.Fatalf("expected username, got %q", result.Username)
		}

		var total int64
		if errCount := conn.Model(&models.CredentialAudit{}).
			Where("subscription_id = ? AND action = ?", sub.ID, models.AuditActionViewed).
			Count(&total).Error; errCount != nil {
			t.Fatalf("count audits: %v", errCount)
		}
		if total != int64(i) {
			t.Fatalf("expected %d viewed audit rows, got %d", i, total)
		}
	}
}

func TestRevealMissingCredential(t *testing.T) {
	service, conn := newTestService(t)
	sub := seedSubscription(t, conn)

	if _, err := service.Reveal(context.Background(), sub.ID, models.AuditActionViewed, "admin"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.Reveal(context.Background(), 9999, models.AuditActionViewed, "admin"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing subscription, got %v", err)
	}

	// A failed reveal must not leave audit rows behind.
	var total int64
	if errCount := conn.Model(&models.CredentialAudit{}).Count(&total).Error; errCount != nil {
		t.Fatalf("count audits: %v", errCount)
	}
	if total != 0 {
		t.Fatalf("expected no audit rows, got %d", total)
	}
}

func TestRevealRejectsUnknownAction(t *testing.T) {
	service, conn := newTestService(t)
	sub := seedSubscription(t, conn)
	if _, err := service.Reveal(context.Background(), sub.ID, "exported", "admin"); err != ErrInvalidAction {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	service, conn := newTestService(t)
	sub := seedSubscription(t, conn)

	if _, errFirst := service.Create(context.Background(), sub.ID, "ops@corp.test", "hunter2", "", "admin"); errFirst != nil {
		t.Fatalf("create credential: %v", errFirst)
	}
	if _, errSecond := service.Create(context.Background(), sub.ID, "ops@corp.test", "other", "", "admin"); errSecond != ErrDuplicateCredential {
		t.Fatalf("expected ErrDuplicateCredential, got %v", errSecond)
	}
}

func TestUpdateAuditsAndReEncrypts(t *testing.T) {
	service, conn := newTestService(t)
	sub := seedSubscription(t, conn)

	if _, errCreate := service.Create(context.Background(), sub.ID, "ops@corp.test", "hunter2", "", "admin"); errCreate != nil {
		t.Fatalf("create credential: %v", errCreate)
	}
	if errUpdate := service.Update(context.Background(), sub.ID, "ops@corp.test", "rotated", "rotated on incident", "admin"); errUpdate != nil {
		t.Fatalf("update credential: %v", errUpdate)
	}

	result, errReveal := service.Reveal(context.Background(), sub.ID, models.AuditActionCopied, "admin")
	if errReveal != nil {
		t.Fatalf("reveal: %v", errReveal)
	}
	if result.Plaintext != "rotated" {
		t.Fatalf("expected rotated secret, got %q", result.Plaintext)
	}

	var updatedCount int64
	if errCount := conn.Model(&models.CredentialAudit{}).
		Where("action = ?", models.AuditActionUpdated).
		Count(&updatedCount).Error; errCount != nil {
		t.Fatalf("count audits: %v", errCount)
	}
	if updatedCount != 2 {
		t.Fatalf("expected 2 updated audit rows (create + update), got %d", updatedCount)
	}
}
