package app

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/security"
)

// Bootstrap admin environment variables, consulted only while the admin
// table is empty.
const (
	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
	EnvAdminEmail    = "ADMIN_EMAIL"
)

// minAdminPasswordLength guards against trivially weak bootstrap passwords.
const minAdminPasswordLength = 6

// EnsureAdmin creates the first admin account from environment variables
// when no admin exists yet. With admins present, or without the variables
// set, it does nothing.
func EnsureAdmin(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("count admins: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(EnvAdminUsername))
	password := os.Getenv(EnvAdminPassword)
	if username == "" || strings.TrimSpace(password) == "" {
		log.Warn("no admin accounts exist; set ADMIN_USERNAME and ADMIN_PASSWORD to bootstrap one")
		return nil
	}
	if len(password) < minAdminPasswordLength {
		return fmt.Errorf("bootstrap admin password must be at least %d characters", minAdminPasswordLength)
	}

	hashed, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash admin password: %w", errHash)
	}
	adminUser := models.Admin{
		Username: username,
		Email:    strings.TrimSpace(os.Getenv(EnvAdminEmail)),
		Password: hashed,
		Active:   true,
	}
	if errCreate := conn.Create(&adminUser).Error; errCreate != nil {
		return fmt.Errorf("create bootstrap admin: %w", errCreate)
	}
	log.WithField("username", username).Info("bootstrap admin account created")
	return nil
}
