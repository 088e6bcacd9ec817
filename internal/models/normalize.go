package models

import "strings"

// Payment method identifiers.
const (
	// PaymentMethodCard pays by company card.
	PaymentMethodCard = "card"
	// PaymentMethodInvoice pays against an invoice.
	PaymentMethodInvoice = "invoice"
	// PaymentMethodOther is the default when nothing matches.
	PaymentMethodOther = "other"
)

var billingCycleAliases = map[string]string{
	"monthly":     BillingCycleMonthly,
	"month":       BillingCycleMonthly,
	"1m":          BillingCycleMonthly,
	"quarterly":   BillingCycleQuarterly,
	"quarter":     BillingCycleQuarterly,
	"3m":          BillingCycleQuarterly,
	"half-yearly": BillingCycleHalfYearly,
	"half yearly": BillingCycleHalfYearly,
	"halfyearly":  BillingCycleHalfYearly,
	"semi-annual": BillingCycleHalfYearly,
	"semiannual":  BillingCycleHalfYearly,
	"6m":          BillingCycleHalfYearly,
	"yearly":      BillingCycleYearly,
	"annual":      BillingCycleYearly,
	"annually":    BillingCycleYearly,
	"year":        BillingCycleYearly,
	"12m":         BillingCycleYearly,
}

var paymentMethodAliases = map[string]string{
	"card":          PaymentMethodCard,
	"credit card":   PaymentMethodCard,
	"creditcard":    PaymentMethodCard,
	"debit card":    PaymentMethodCard,
	"invoice":       PaymentMethodInvoice,
	"bank transfer": PaymentMethodInvoice,
	"wire":          PaymentMethodInvoice,
	"other":         PaymentMethodOther,
}

var subscriptionStatusAliases = map[string]string{
	"active":    SubscriptionStatusActive,
	"enabled":   SubscriptionStatusActive,
	"paused":    SubscriptionStatusPaused,
	"suspended": SubscriptionStatusPaused,
	"on hold":   SubscriptionStatusPaused,
	"cancelled": SubscriptionStatusCancelled,
	"canceled":  SubscriptionStatusCancelled,
	"expired":   SubscriptionStatusCancelled,
}

// NormalizeBillingCycle maps user-supplied cycle text to a canonical value.
// Blank input defaults to monthly; unrecognized input reports ok=false.
func NormalizeBillingCycle(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return BillingCycleMonthly, true
	}
	cycle, ok := billingCycleAliases[key]
	return cycle, ok
}

// NormalizePaymentMethod maps user-supplied payment text to a canonical
// value. Blank input defaults to other; unrecognized input reports ok=false.
func NormalizePaymentMethod(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return PaymentMethodOther, true
	}
	method, ok := paymentMethodAliases[key]
	return method, ok
}

// NormalizeSubscriptionStatus maps user-supplied status text to a canonical
// value. Blank input defaults to active; unrecognized input reports ok=false.
func NormalizeSubscriptionStatus(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return SubscriptionStatusActive, true
	}
	status, ok := subscriptionStatusAliases[key]
	return status, ok
}
