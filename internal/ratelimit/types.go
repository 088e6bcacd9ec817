package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// ErrLimited is returned by helpers when a ceiling is exhausted. Callers
// surface a generic throttling message without naming the exhausted key.
var ErrLimited = errors.New("rate limit exceeded")

// GlobalKey counts all public submissions together.
const GlobalKey = "global"

// EmailKey builds the per-sender limiter key.
func EmailKey(email string) string {
	return "email:" + email
}
