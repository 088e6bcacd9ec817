package db

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	internalsettings "github.com/subtrack-hq/subtrack/internal/settings"
)

// Migrate applies the schema and seeds reference data.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Category{},
		&models.Currency{},
		&models.Subscription{},
		&models.SubscriptionRequest{},
		&models.Credential{},
		&models.CredentialAudit{},
		&models.Counter{},
		&models.RateLimitWindow{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultCurrencies(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureDefaultCategories(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSiteNameSetting(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// seedCurrencies are created on first run. INR is the reporting base.
var seedCurrencies = []models.Currency{
	{Code: "INR", Name: "Indian Rupee", Symbol: "₹", RateToBase: 1, IsActive: true},
	{Code: "USD", Name: "US Dollar", Symbol: "$", RateToBase: 83, IsActive: true},
	{Code: "EUR", Name: "Euro", Symbol: "€", RateToBase: 90, IsActive: true},
	{Code: "GBP", Name: "Pound Sterling", Symbol: "£", RateToBase: 105, IsActive: true},
}

func ensureDefaultCurrencies(conn *gorm.DB) error {
	var total int64
	if errCount := conn.Model(&models.Currency{}).Count(&total).Error; errCount != nil {
		return fmt.Errorf("db: count currencies: %w", errCount)
	}
	if total > 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range seedCurrencies {
		seedCurrencies[i].CreatedAt = now
		seedCurrencies[i].UpdatedAt = now
	}
	if errCreate := conn.Create(&seedCurrencies).Error; errCreate != nil {
		return fmt.Errorf("db: seed currencies: %w", errCreate)
	}
	return nil
}

// seedCategories are created on first run.
var seedCategories = []models.Category{
	{Name: "Cloud Infrastructure", IsActive: true},
	{Name: "Developer Tools", IsActive: true},
	{Name: "Productivity", IsActive: true},
	{Name: "Communication", IsActive: true},
	{Name: "Design", IsActive: true},
	{Name: "Other", IsActive: true},
}

func ensureDefaultCategories(conn *gorm.DB) error {
	var total int64
	if errCount := conn.Model(&models.Category{}).Count(&total).Error; errCount != nil {
		return fmt.Errorf("db: count categories: %w", errCount)
	}
	if total > 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range seedCategories {
		seedCategories[i].CreatedAt = now
		seedCategories[i].UpdatedAt = now
	}
	if errCreate := conn.Create(&seedCategories).Error; errCreate != nil {
		return fmt.Errorf("db: seed categories: %w", errCreate)
	}
	return nil
}

func ensureSiteNameSetting(conn *gorm.DB) error {
	var existing models.Setting
	errFind := conn.Where("key = ?", internalsettings.SiteNameKey).First(&existing).Error
	if errFind == nil {
		return nil
	}
	payload, errMarshal := json.Marshal(internalsettings.DefaultSiteName)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal SITE_NAME setting: %w", errMarshal)
	}
	setting := models.Setting{
		Key:       internalsettings.SiteNameKey,
		Value:     datatypes.JSON(payload),
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create SITE_NAME setting: %w", errCreate)
	}
	return nil
}
