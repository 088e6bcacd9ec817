package refnum

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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
	if errMigrate := conn.AutoMigrate(&models.Counter{}); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	return conn
}

func TestAllocateSequential(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		ref, err := Allocate(conn, EntitySubscription, now)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		want := fmt.Sprintf("SUB-2026-%03d", i)
		if ref != want {
			t.Fatalf("expected %q, got %q", want, ref)
		}
	}
}

func TestAllocatePerEntityAndYear(t *testing.T) {
	conn := newTestDB(t)
	in2026 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in2027 := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	refSub, errSub := Allocate(conn, EntitySubscription, in2026)
	if errSub != nil {
		t.Fatalf("allocate subscription: %v", errSub)
	}
	refReq, errReq := Allocate(conn, EntityRequest, in2026)
	if errReq != nil {
		t.Fatalf("allocate request: %v", errReq)
	}
	if refSub != "SUB-2026-001" {
		t.Fatalf("expected SUB-2026-001, got %q", refSub)
	}
	if refReq != "REQ-2026-001" {
		t.Fatalf("expected REQ-2026-001, got %q", refReq)
	}

	refNext, errNext := Allocate(conn, EntitySubscription, in2027)
	if errNext != nil {
		t.Fatalf("allocate next year: %v", errNext)
	}
	if refNext != "SUB-2027-001" {
		t.Fatalf("expected counters keyed per year, got %q", refNext)
	}
}

func TestAllocateWidensPastThreeDigits(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	counter := models.Counter{Name: "subscription-2026", Value: 999}
	if errSeed := conn.Create(&counter).Error; errSeed != nil {
		t.Fatalf("seed counter: %v", errSeed)
	}

	ref, err := Allocate(conn, EntitySubscription, now)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ref != "SUB-2026-1000" {
		t.Fatalf("expected SUB-2026-1000, got %q", ref)
	}
}

func TestAllocateUnknownEntity(t *testing.T) {
	conn := newTestDB(t)
	if _, err := Allocate(conn, "invoice", time.Now()); err == nil {
		t.Fatalf("expected error for unknown entity type")
	}
}
