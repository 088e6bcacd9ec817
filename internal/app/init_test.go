package app

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/security"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	return conn
}

func TestEnsureAdminBootstrapsFromEnv(t *testing.T) {
	conn := newTestDB(t)
	t.Setenv(EnvAdminUsername, "root")
	t.Setenv(EnvAdminPassword, "correct horse")
	t.Setenv(EnvAdminEmail, "root@example.com")

	if err := EnsureAdmin(conn); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	var adminUser models.Admin
	if errFind := conn.Where("username = ?", "root").First(&adminUser).Error; errFind != nil {
		t.Fatalf("load admin: %v", errFind)
	}
	if !adminUser.Active {
		t.Fatalf("expected bootstrap admin active")
	}
	if !security.CheckPassword(adminUser.Password, "correct horse") {
		t.Fatalf("expected hashed password to verify")
	}
}

func TestEnsureAdminSkipsWhenAdminExists(t *testing.T) {
	conn := newTestDB(t)
	existing := models.Admin{Username: "existing", Password: "x", Active: true}
	if errSeed := conn.Create(&existing).Error; errSeed != nil {
		t.Fatalf("seed admin: %v", errSeed)
	}
	t.Setenv(EnvAdminUsername, "root")
	t.Setenv(EnvAdminPassword, "irrelevant")

	if err := EnsureAdmin(conn); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count admins: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected no new admin, got %d rows", count)
	}
}

func TestEnsureAdminRejectsShortPassword(t *testing.T) {
	conn := newTestDB(t)
	t.Setenv(EnvAdminUsername, "root")
	t.Setenv(EnvAdminPassword, "tiny")

	if err := EnsureAdmin(conn); err == nil {
		t.Fatalf("expected error for short bootstrap password")
	}
}
