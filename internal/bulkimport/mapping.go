// Package bulkimport validates and imports subscription rows from CSV-shaped
// tabular input. Column mapping is heuristic, per-row validation collects all
// field errors, and the importer writes valid rows in bounded chunks so one
// bad chunk cannot undo the rest.
package bulkimport

import "strings"

// Canonical field identifiers a column can map to. FieldSkip marks a column
// the importer ignores.
const (
	FieldName          = "name"
	FieldProvider      = "provider"
	FieldCategory      = "category"
	FieldCost          = "cost"
	FieldCurrency      = "currency"
	FieldBillingCycle  = "billing_cycle"
	FieldPaymentMethod = "payment_method"
	FieldStatus        = "status"
	FieldStartDate     = "start_date"
	FieldRenewalDate   = "next_renewal_date"
	FieldOwnerEmail    = "owner_email"
	FieldNotes         = "notes"
	FieldSkip          = "skip"
)

type fieldAliases struct {
	field   string
	aliases []string
}

// Checked in order. Earlier fields win containment ties, so the more specific
// date and payment fields sit above the generic ones.
var knownFields = []fieldAliases{
	{FieldRenewalDate, []string{"next renewal date", "renewal date", "next renewal", "renewal", "due date", "expiry", "expires"}},
	{FieldStartDate, []string{"start date", "started", "purchase date", "start"}},
	{FieldPaymentMethod, []string{"payment method", "payment type", "payment", "paid via"}},
	{FieldBillingCycle, []string{"billing cycle", "billing frequency", "billing", "cycle", "frequency"}},
	{FieldCost, []string{"cost", "price", "amount", "fee"}},
	{FieldCurrency, []string{"currency code", "currency"}},
	{FieldCategory, []string{"category", "group"}},
	{FieldStatus, []string{"status", "state"}},
	{FieldOwnerEmail, []string{"owner email", "owner", "email", "contact"}},
	{FieldProvider, []string{"provider", "vendor", "supplier", "company"}},
	{FieldName, []string{"subscription name", "service name", "name", "subscription", "service", "title"}},
	{FieldNotes, []string{"notes", "note", "comments", "description", "remarks"}},
}

// AutoDetectMapping assigns each header column to a known field or FieldSkip.
// Exact alias matches are tried before substring containment, and a field is
// claimed by at most one column; later candidates for a claimed field skip.
func AutoDetectMapping(headers []string) []string {
	mapping := make([]string, len(headers))
	claimed := make(map[string]bool, len(knownFields))

	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		mapping[i] = FieldSkip
		if key == "" {
			continue
		}
		if field, ok := matchExact(key, claimed); ok {
			mapping[i] = field
			claimed[field] = true
			continue
		}
		if field, ok := matchContains(key, claimed); ok {
			mapping[i] = field
			claimed[field] = true
		}
	}
	return mapping
}

func matchExact(key string, claimed map[string]bool) (string, bool) {
	for _, candidate := range knownFields {
		if claimed[candidate.field] {
			continue
		}
		for _, alias := range candidate.aliases {
			if key == alias {
				return candidate.field, true
			}
		}
	}
	return "", false
}

func matchContains(key string, claimed map[string]bool) (string, bool) {
	for _, candidate := range knownFields {
		if claimed[candidate.field] {
			continue
		}
		for _, alias := range candidate.aliases {
			if strings.Contains(key, alias) {
				return candidate.field, true
			}
		}
	}
	return "", false
}
