// Package refnum allocates human-readable sequential reference numbers,
// formatted "<PREFIX>-<year>-<NNN>" and unique per entity type per year.
package refnum

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// Entity types with registered prefixes.
const (
	// EntitySubscription allocates SUB-prefixed numbers.
	EntitySubscription = "subscription"
	// EntityRequest allocates REQ-prefixed numbers.
	EntityRequest = "request"
)

var prefixes = map[string]string{
	EntitySubscription: "SUB",
	EntityRequest:      "REQ",
}

// Allocate reserves the next reference number for the entity type within the
// caller's transaction. The counter row keyed "<entityType>-<year>" is
// incremented atomically; values >= 1000 widen past the 3-digit padding.
func Allocate(tx *gorm.DB, entityType string, now time.Time) (string, error) {
	prefix, ok := prefixes[entityType]
	if !ok {
		return "", fmt.Errorf("refnum: unknown entity type %q", entityType)
	}
	year := now.UTC().Year()
	key := fmt.Sprintf("%s-%d", entityType, year)

	value, errNext := nextValue(tx, key)
	if errNext != nil {
		return "", errNext
	}
	return fmt.Sprintf("%s-%d-%03d", prefix, year, value), nil
}

// nextValue increments the counter row, creating it at 1 when absent. The
// increment is a single conditional UPDATE so concurrent transactions cannot
// observe the same value.
func nextValue(tx *gorm.DB, key string) (int64, error) {
	res := tx.Model(&models.Counter{}).
		Where("name = ?", key).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("refnum: increment counter %s: %w", key, res.Error)
	}

	if res.RowsAffected == 0 {
		counter := models.Counter{Name: key, Value: 1}
		resCreate := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter)
		if resCreate.Error != nil {
			return 0, fmt.Errorf("refnum: create counter %s: %w", key, resCreate.Error)
		}
		if resCreate.RowsAffected > 0 {
			return 1, nil
		}
		// Another writer created the row first; take the next increment.
		resRetry := tx.Model(&models.Counter{}).
			Where("name = ?", key).
			UpdateColumn("value", gorm.Expr("value + 1"))
		if resRetry.Error != nil {
			return 0, fmt.Errorf("refnum: increment counter %s: %w", key, resRetry.Error)
		}
	}

	var counter models.Counter
	if errFind := tx.Where("name = ?", key).First(&counter).Error; errFind != nil {
		return 0, fmt.Errorf("refnum: read counter %s: %w", key, errFind)
	}
	return counter.Value, nil
}
