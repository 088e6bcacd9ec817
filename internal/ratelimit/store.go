package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// StoreLimiter implements a fixed-window rate limiter over rate_limit_windows
// rows. Expired windows are reset in place rather than deleted.
type StoreLimiter struct {
	db *gorm.DB
}

// NewStoreLimiter constructs a StoreLimiter.
func NewStoreLimiter(db *gorm.DB) *StoreLimiter {
	return &StoreLimiter{db: db}
}

// Allow checks whether the request fits in the current window and counts it.
// A denied request does not mutate the window.
func (l *StoreLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || window <= 0 {
		return Result{Allowed: true}, nil
	}
	if l == nil || l.db == nil {
		return Result{}, fmt.Errorf("rate limit store: not initialized")
	}

	now = now.UTC()
	cutoff := now.Add(-window)
	result := Result{}

	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Count against a still-fresh window in one conditional update so two
		// concurrent callers cannot both take the last slot.
		res := tx.Model(&models.RateLimitWindow{}).
			Where("key = ? AND window_start > ? AND count < ?", key, cutoff, limit).
			Updates(map[string]any{
				"count":      gorm.Expr("count + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("rate limit store: increment %s: %w", key, res.Error)
		}
		if res.RowsAffected > 0 {
			return l.loadResult(tx, key, limit, window, &result)
		}

		var row models.RateLimitWindow
		errFind := tx.Where("key = ?", key).First(&row).Error
		if errFind == nil && row.WindowStart.After(cutoff) {
			// Fresh window at capacity: deny without mutation.
			result = Result{Allowed: false, Remaining: 0, Reset: row.WindowStart.Add(window).UTC()}
			return nil
		}
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("rate limit store: load %s: %w", key, errFind)
		}

		// Absent or expired: reset to a new window counting this request.
		row = models.RateLimitWindow{Key: key, WindowStart: now, Count: 1, UpdatedAt: now}
		if errUpsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"window_start", "count", "updated_at"}),
		}).Create(&row).Error; errUpsert != nil {
			return fmt.Errorf("rate limit store: reset %s: %w", key, errUpsert)
		}
		result = Result{Allowed: true, Remaining: limit - 1, Reset: now.Add(window).UTC()}
		return nil
	})
	if errTx != nil {
		return Result{}, errTx
	}
	return result, nil
}

func (l *StoreLimiter) loadResult(tx *gorm.DB, key string, limit int, window time.Duration, out *Result) error {
	var row models.RateLimitWindow
	if errFind := tx.Where("key = ?", key).First(&row).Error; errFind != nil {
		return fmt.Errorf("rate limit store: reload %s: %w", key, errFind)
	}
	remaining := limit - row.Count
	if remaining < 0 {
		remaining = 0
	}
	*out = Result{Allowed: true, Remaining: remaining, Reset: row.WindowStart.Add(window).UTC()}
	return nil
}
