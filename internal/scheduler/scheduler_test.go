package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/notify"
)

type recordingSender struct {
	sent []notify.Message
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.Subscription{}); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	return conn
}

func seedSubscription(t *testing.T, conn *gorm.DB, ref string, renewal time.Time, mutate func(*models.Subscription)) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		ReferenceNumber:        ref,
		Name:                   "Sub " + ref,
		CategoryID:             1,
		Cost:                   100,
		CurrencyID:             1,
		BillingCycle:           models.BillingCycleMonthly,
		StartDate:              renewal.AddDate(0, -1, 0),
		NextRenewalDate:        renewal,
		Status:                 models.SubscriptionStatusActive,
		NotificationEnabled:    true,
		NotificationDaysBefore: 7,
		OwnerEmail:             ref + "@example.com",
	}
	if mutate != nil {
		mutate(sub)
	}
	if errSeed := conn.Create(sub).Error; errSeed != nil {
		t.Fatalf("seed subscription: %v", errSeed)
	}
	return sub
}

func TestScanRemindsWithinWindow(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	inWindow := seedSubscription(t, conn, "SUB-2026-001", time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), nil)
	seedSubscription(t, conn, "SUB-2026-002", time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC), nil)
	seedSubscription(t, conn, "SUB-2026-003", time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), func(sub *models.Subscription) {
		sub.NotificationEnabled = false
	})
	seedSubscription(t, conn, "SUB-2026-004", time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), func(sub *models.Subscription) {
		sub.Status = models.SubscriptionStatusCancelled
	})

	sender := &recordingSender{}
	sched := New(conn, sender, nil, func() time.Time { return now })
	if err := sched.ScanRenewals(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one reminder, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "SUB-2026-001@example.com" {
		t.Fatalf("expected reminder to in-window owner, got %q", sender.sent[0].To)
	}

	var stored models.Subscription
	if errFind := conn.First(&stored, inWindow.ID).Error; errFind != nil {
		t.Fatalf("reload subscription: %v", errFind)
	}
	if stored.LastNotifiedAt == nil || !stored.LastNotifiedAt.Equal(now) {
		t.Fatalf("expected last_notified_at stamped %v, got %v", now, stored.LastNotifiedAt)
	}
}

func TestScanDoesNotRepeatReminder(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	seedSubscription(t, conn, "SUB-2026-001", time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), nil)

	sender := &recordingSender{}
	sched := New(conn, sender, nil, func() time.Time { return now })
	if err := sched.ScanRenewals(context.Background()); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if err := sched.ScanRenewals(context.Background()); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one reminder across repeat scans, got %d", len(sender.sent))
	}
}

func TestScanRollsPastDueForward(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	overdue := seedSubscription(t, conn, "SUB-2026-001", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), func(sub *models.Subscription) {
		sub.BillingCycle = models.BillingCycleQuarterly
	})

	sched := New(conn, &recordingSender{}, nil, func() time.Time { return now })
	if err := sched.ScanRenewals(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	var stored models.Subscription
	if errFind := conn.First(&stored, overdue.ID).Error; errFind != nil {
		t.Fatalf("reload subscription: %v", errFind)
	}
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !stored.NextRenewalDate.Equal(want) {
		t.Fatalf("expected renewal rolled to %v, got %v", want, stored.NextRenewalDate)
	}
}
