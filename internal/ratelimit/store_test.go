package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrack-hq/subtrack/internal/config"
	"github.com/subtrack-hq/subtrack/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.RateLimitWindow{}); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	return conn
}

func TestStoreLimiterDeniesAtLimit(t *testing.T) {
	conn := newTestDB(t)
	limiter := NewStoreLimiter(conn)
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	window := time.Hour

	for i := 1; i <= 5; i++ {
		res, err := limiter.Allow(context.Background(), "email:a@corp.test", 5, window, now)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("expected call %d allowed", i)
		}
		if res.Remaining != 5-i {
			t.Fatalf("expected remaining %d, got %d", 5-i, res.Remaining)
		}
	}

	res, err := limiter.Allow(context.Background(), "email:a@corp.test", 5, window, now)
	if err != nil {
		t.Fatalf("allow 6th: %v", err)
	}
	if res.Allowed {
		t.Fatalf("expected 6th call denied")
	}

	// A denied call must not mutate the window.
	var row models.RateLimitWindow
	if errFind := conn.Where("key = ?", "email:a@corp.test").First(&row).Error; errFind != nil {
		t.Fatalf("load window: %v", errFind)
	}
	if row.Count != 5 {
		t.Fatalf("expected count 5 after denial, got %d", row.Count)
	}
}

func TestStoreLimiterResetsExpiredWindow(t *testing.T) {
	conn := newTestDB(t)
	limiter := NewStoreLimiter(conn)
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	window := time.Hour

	for i := 0; i < 5; i++ {
		if _, err := limiter.Allow(context.Background(), "global", 5, window, start); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if res, _ := limiter.Allow(context.Background(), "global", 5, window, start); res.Allowed {
		t.Fatalf("expected denial before window expiry")
	}

	later := start.Add(window + time.Minute)
	res, err := limiter.Allow(context.Background(), "global", 5, window, later)
	if err != nil {
		t.Fatalf("allow after expiry: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected reset window to allow")
	}

	var row models.RateLimitWindow
	if errFind := conn.Where("key = ?", "global").First(&row).Error; errFind != nil {
		t.Fatalf("load window: %v", errFind)
	}
	if row.Count != 1 {
		t.Fatalf("expected reset count 1, got %d", row.Count)
	}
	if !row.WindowStart.Equal(later) {
		t.Fatalf("expected window_start %s, got %s", later, row.WindowStart)
	}
}

func TestStoreLimiterKeysIndependent(t *testing.T) {
	conn := newTestDB(t)
	limiter := NewStoreLimiter(conn)
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	if _, err := limiter.Allow(context.Background(), "email:a@corp.test", 1, time.Hour, now); err != nil {
		t.Fatalf("allow a: %v", err)
	}
	res, err := limiter.Allow(context.Background(), "email:b@corp.test", 1, time.Hour, now)
	if err != nil {
		t.Fatalf("allow b: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected independent key to be allowed")
	}
}

func TestManagerCheckSubmission(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	manager := NewManager(conn, config.RateLimitConfig{
		GlobalLimit: 100,
		EmailLimit:  2,
		Window:      time.Hour,
	}, func() time.Time { return now }, nil)

	for i := 0; i < 2; i++ {
		if err := manager.CheckSubmission(context.Background(), "a@corp.test"); err != nil {
			t.Fatalf("expected submission %d allowed, got %v", i+1, err)
		}
	}
	if err := manager.CheckSubmission(context.Background(), "a@corp.test"); err != ErrLimited {
		t.Fatalf("expected ErrLimited, got %v", err)
	}
	// Another sender is unaffected by the per-email ceiling.
	if err := manager.CheckSubmission(context.Background(), "b@corp.test"); err != nil {
		t.Fatalf("expected other sender allowed, got %v", err)
	}
}
