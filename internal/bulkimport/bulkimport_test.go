package bulkimport

import (
	"context"
	"reflect"
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
	errMigrate := conn.AutoMigrate(
		&models.Counter{},
		&models.Category{},
		&models.Currency{},
		&models.Subscription{},
	)
	if errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	seed := []any{
		&models.Category{Name: "Cloud Infrastructure", IsActive: true},
		&models.Category{Name: "Developer Tools", IsActive: true},
		&models.Category{Name: "Retired", IsActive: false},
		&models.Currency{Code: "INR", Name: "Indian Rupee", RateToBase: 1, IsActive: true},
		&models.Currency{Code: "USD", Name: "US Dollar", RateToBase: 0.012, IsActive: true},
	}
	for _, row := range seed {
		if errSeed := conn.Create(row).Error; errSeed != nil {
			t.Fatalf("seed test db: %v", errSeed)
		}
	}
	return conn
}

func loadTestLookups(t *testing.T, conn *gorm.DB) *Lookups {
	t.Helper()
	lookups, err := LoadLookups(conn)
	if err != nil {
		t.Fatalf("load lookups: %v", err)
	}
	return lookups
}

func TestAutoDetectMappingAliases(t *testing.T) {
	got := AutoDetectMapping([]string{"Subscription Name", "Price", "Vendor"})
	want := []string{FieldName, FieldCost, FieldProvider}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAutoDetectMappingFirstMatchWins(t *testing.T) {
	got := AutoDetectMapping([]string{"Name", "Service Name", "Unrelated"})
	want := []string{FieldName, FieldSkip, FieldSkip}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected second name column to skip, got %v", got)
	}
}

func TestAutoDetectMappingExactBeforeContainment(t *testing.T) {
	got := AutoDetectMapping([]string{"Payment Method", "Billing Cycle", "Next Renewal Date", "Owner Email"})
	want := []string{FieldPaymentMethod, FieldBillingCycle, FieldRenewalDate, FieldOwnerEmail}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestValidateRowNegativeCostOnly(t *testing.T) {
	conn := newTestDB(t)
	lookups := loadTestLookups(t, conn)
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mapping := []string{FieldName, FieldCost, FieldCategory}
	result := ValidateRow([]string{"AWS", "-5", "cloud infrastructure"}, mapping, lookups, now)
	if result.Valid {
		t.Fatalf("expected invalid row")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one field error, got %v", result.Errors)
	}
	if _, ok := result.Errors[FieldCost]; !ok {
		t.Fatalf("expected cost error, got %v", result.Errors)
	}
	if result.Data != nil {
		t.Fatalf("invalid row must carry no data")
	}
}

func TestValidateRowDefaults(t *testing.T) {
	conn := newTestDB(t)
	lookups := loadTestLookups(t, conn)
	now := time.Date(2026, 4, 1, 15, 30, 0, 0, time.UTC)

	mapping := []string{FieldName, FieldCost, FieldCategory}
	result := ValidateRow([]string{"GitHub", "40", "Developer Tools"}, mapping, lookups, now)
	if !result.Valid {
		t.Fatalf("expected valid row, got %v", result.Errors)
	}

	var inr models.Currency
	if errFind := conn.Where("code = ?", "INR").First(&inr).Error; errFind != nil {
		t.Fatalf("load INR: %v", errFind)
	}
	if result.Data.CurrencyID != inr.ID {
		t.Fatalf("expected INR default currency")
	}
	if result.Data.BillingCycle != models.BillingCycleMonthly {
		t.Fatalf("expected monthly default, got %q", result.Data.BillingCycle)
	}
	if result.Data.PaymentMethod != models.PaymentMethodOther {
		t.Fatalf("expected other default, got %q", result.Data.PaymentMethod)
	}
	if result.Data.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected active default, got %q", result.Data.Status)
	}
	wantStart := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !result.Data.StartDate.Equal(wantStart) {
		t.Fatalf("expected start date today, got %v", result.Data.StartDate)
	}
	wantRenewal := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if !result.Data.NextRenewalDate.Equal(wantRenewal) {
		t.Fatalf("expected renewal one cycle out, got %v", result.Data.NextRenewalDate)
	}
}

func TestValidateRowUnrecognizedAliasErrors(t *testing.T) {
	conn := newTestDB(t)
	lookups := loadTestLookups(t, conn)

	mapping := []string{FieldName, FieldCost, FieldCategory, FieldBillingCycle, FieldStatus}
	result := ValidateRow(
		[]string{"Slack", "12", "Developer Tools", "fortnightly", "zombie"},
		mapping, lookups, time.Now(),
	)
	if result.Valid {
		t.Fatalf("expected invalid row")
	}
	for _, field := range []string{FieldBillingCycle, FieldStatus} {
		if _, ok := result.Errors[field]; !ok {
			t.Fatalf("expected error on %q, got %v", field, result.Errors)
		}
	}
}

func TestValidateRowDateFormats(t *testing.T) {
	conn := newTestDB(t)
	lookups := loadTestLookups(t, conn)
	mapping := []string{FieldName, FieldCost, FieldCategory, FieldStartDate}

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2026-03-05", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"05/03/2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"25/12/2026", time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"Mar 5, 2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		result := ValidateRow([]string{"Figma", "15", "Developer Tools", tc.raw}, mapping, lookups, time.Now())
		if !result.Valid {
			t.Fatalf("date %q: expected valid, got %v", tc.raw, result.Errors)
		}
		if !result.Data.StartDate.Equal(tc.want) {
			t.Fatalf("date %q: expected %v, got %v", tc.raw, tc.want, result.Data.StartDate)
		}
	}

	bad := ValidateRow([]string{"Figma", "15", "Developer Tools", "soonish"}, mapping, lookups, time.Now())
	if bad.Valid {
		t.Fatalf("expected unparseable date to fail")
	}
	if _, ok := bad.Errors[FieldStartDate]; !ok {
		t.Fatalf("expected start_date error, got %v", bad.Errors)
	}
}

func TestValidateRowInactiveCategory(t *testing.T) {
	conn := newTestDB(t)
	lookups := loadTestLookups(t, conn)

	mapping := []string{FieldName, FieldCost, FieldCategory}
	result := ValidateRow([]string{"Old Tool", "9", "Retired"}, mapping, lookups, time.Now())
	if result.Valid {
		t.Fatalf("expected inactive category to fail")
	}
	if _, ok := result.Errors[FieldCategory]; !ok {
		t.Fatalf("expected category error, got %v", result.Errors)
	}
}

func TestImporterMixedRows(t *testing.T) {
	conn := newTestDB(t)
	lookups := loadTestLookups(t, conn)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mapping := []string{FieldName, FieldCost, FieldCategory}
	rows := [][]string{
		{"AWS", "1200", "Cloud Infrastructure"},
		{"Broken", "-1", "Cloud Infrastructure"},
		{"GitHub", "40", "Developer Tools"},
	}
	results := make([]RowResult, len(rows))
	for i, row := range rows {
		results[i] = ValidateRow(row, mapping, lookups, now)
	}

	importer := NewImporter(conn, func() time.Time { return now })
	summary := importer.Import(context.Background(), results)

	if summary.Total != 3 || summary.Imported != 2 || summary.Failed != 1 {
		t.Fatalf("expected 2 imported and 1 failed, got %+v", summary)
	}
	if !summary.Outcomes[0].Imported || summary.Outcomes[0].Reference != "SUB-2026-001" {
		t.Fatalf("expected first row SUB-2026-001, got %+v", summary.Outcomes[0])
	}
	if summary.Outcomes[1].Imported || summary.Outcomes[1].Error == "" {
		t.Fatalf("expected second row to fail with message, got %+v", summary.Outcomes[1])
	}
	if summary.Outcomes[2].Reference != "SUB-2026-002" {
		t.Fatalf("expected sequential references, got %+v", summary.Outcomes[2])
	}

	var count int64
	if errCount := conn.Model(&models.Subscription{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count subscriptions: %v", errCount)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored subscriptions, got %d", count)
	}
}
