package bulkimport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/renewal"
	"github.com/subtrack-hq/subtrack/internal/settings"
)

// Lookups holds the in-memory reference tables a validation pass resolves
// against. Only active rows are loaded.
type Lookups struct {
	Categories map[string]*models.Category // keyed by lower-case name
	Currencies map[string]*models.Currency // keyed by upper-case code
}

// LoadLookups reads the active categories and currencies once for a batch.
func LoadLookups(db *gorm.DB) (*Lookups, error) {
	var categories []models.Category
	if errFind := db.Where("is_active = ?", true).Find(&categories).Error; errFind != nil {
		return nil, fmt.Errorf("bulkimport: load categories: %w", errFind)
	}
	var currencies []models.Currency
	if errFind := db.Where("is_active = ?", true).Find(&currencies).Error; errFind != nil {
		return nil, fmt.Errorf("bulkimport: load currencies: %w", errFind)
	}

	lookups := &Lookups{
		Categories: make(map[string]*models.Category, len(categories)),
		Currencies: make(map[string]*models.Currency, len(currencies)),
	}
	for i := range categories {
		lookups.Categories[strings.ToLower(categories[i].Name)] = &categories[i]
	}
	for i := range currencies {
		lookups.Currencies[strings.ToUpper(currencies[i].Code)] = &currencies[i]
	}
	return lookups, nil
}

// RowResult is the outcome of validating one data row. Data is populated
// only when the row is valid.
type RowResult struct {
	Valid  bool
	Errors map[string]string
	Data   *models.Subscription
}

// Accepted date layouts, tried in order. Day-first wins the slash ambiguity.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// ValidateRow resolves one row against the mapping and lookups. Every field
// error is collected; a row with any error carries no data.
func ValidateRow(row []string, mapping []string, lookups *Lookups, now time.Time) RowResult {
	fields := map[string]string{}
	values := map[string]string{}
	for i, field := range mapping {
		if field == FieldSkip || i >= len(row) {
			continue
		}
		values[field] = strings.TrimSpace(row[i])
	}

	name := values[FieldName]
	if name == "" {
		fields[FieldName] = "name is required"
	}

	var cost float64
	if raw := values[FieldCost]; raw == "" {
		fields[FieldCost] = "cost is required"
	} else {
		parsed, errParse := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64)
		if errParse != nil {
			fields[FieldCost] = fmt.Sprintf("cost %q is not a number", raw)
		} else if parsed <= 0 {
			fields[FieldCost] = "cost must be a positive number"
		} else {
			cost = parsed
		}
	}

	var category *models.Category
	if raw := values[FieldCategory]; raw == "" {
		fields[FieldCategory] = "category is required"
	} else if found, ok := lookups.Categories[strings.ToLower(raw)]; ok {
		category = found
	} else {
		fields[FieldCategory] = fmt.Sprintf("unknown category %q", raw)
	}

	code := strings.ToUpper(values[FieldCurrency])
	if code == "" {
		code = settings.DefaultCurrencyCode
	}
	currency, okCurrency := lookups.Currencies[code]
	if !okCurrency {
		fields[FieldCurrency] = fmt.Sprintf("unknown or inactive currency %q", code)
	}

	cycle, okCycle := models.NormalizeBillingCycle(values[FieldBillingCycle])
	if !okCycle {
		fields[FieldBillingCycle] = fmt.Sprintf("unrecognized billing cycle %q", values[FieldBillingCycle])
	}
	payment, okPayment := models.NormalizePaymentMethod(values[FieldPaymentMethod])
	if !okPayment {
		fields[FieldPaymentMethod] = fmt.Sprintf("unrecognized payment method %q", values[FieldPaymentMethod])
	}
	status, okStatus := models.NormalizeSubscriptionStatus(values[FieldStatus])
	if !okStatus {
		fields[FieldStatus] = fmt.Sprintf("unrecognized status %q", values[FieldStatus])
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startDate, errStart := parseDate(values[FieldStartDate], today)
	if errStart != nil {
		fields[FieldStartDate] = errStart.Error()
	}
	renewalDate, errRenewal := parseDate(values[FieldRenewalDate], time.Time{})
	if errRenewal != nil {
		fields[FieldRenewalDate] = errRenewal.Error()
	}

	if len(fields) > 0 {
		return RowResult{Valid: false, Errors: fields}
	}

	if renewalDate.IsZero() {
		renewalDate = renewal.NextDate(startDate, cycle)
	}
	return RowResult{
		Valid: true,
		Data: &models.Subscription{
			Name:                   name,
			Provider:               values[FieldProvider],
			CategoryID:             category.ID,
			Cost:                   cost,
			CurrencyID:             currency.ID,
			BillingCycle:           cycle,
			PaymentMethod:          payment,
			StartDate:              startDate,
			NextRenewalDate:        renewalDate,
			Status:                 status,
			NotificationEnabled:    true,
			NotificationDaysBefore: settings.DefaultNotificationDaysBefore,
			OwnerEmail:             strings.ToLower(values[FieldOwnerEmail]),
			Notes:                  values[FieldNotes],
		},
	}
}

func parseDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if parsed, errParse := time.Parse(layout, raw); errParse == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
