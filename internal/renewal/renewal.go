// Package renewal computes billing-cycle renewal dates with calendar-aware
// month arithmetic.
package renewal

import (
	"time"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// CycleMonths returns the cycle length in months. Unrecognized cycles fall
// back to monthly.
func CycleMonths(cycle string) int {
	switch cycle {
	case models.BillingCycleMonthly:
		return 1
	case models.BillingCycleQuarterly:
		return 3
	case models.BillingCycleHalfYearly:
		return 6
	case models.BillingCycleYearly:
		return 12
	default:
		return 1
	}
}

// NextDate returns from plus one billing cycle. Day-of-month is clamped to
// the target month's last day, so Jan 31 + monthly yields Feb 28 (or 29).
func NextDate(from time.Time, cycle string) time.Time {
	return AddMonths(from, CycleMonths(cycle))
}

// AddMonths adds n calendar months to t, clamping the day instead of letting
// overflow spill into the following month.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	totalMonths := int(month) - 1 + n
	targetYear := year + totalMonths/12
	targetMonth := time.Month(totalMonths%12 + 1)
	if totalMonths < 0 && totalMonths%12 != 0 {
		targetYear--
		targetMonth += 12
	}

	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
