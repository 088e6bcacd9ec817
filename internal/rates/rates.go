// Package rates maintains currency exchange rates. Rates are stored per
// currency as units of the reporting base per unit of the currency, so the
// base itself always holds rate 1.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/config"
	"github.com/subtrack-hq/subtrack/internal/models"
)

// ErrNotFound indicates the currency code is not registered.
var ErrNotFound = errors.New("rates: currency not found")

// ErrInvalidRate indicates a non-positive rate.
var ErrInvalidRate = errors.New("rates: rate must be positive")

const fetchTimeout = 15 * time.Second

// Service updates stored currency rates, manually or from the remote feed.
type Service struct {
	db     *gorm.DB
	cfg    config.RatesConfig
	client *http.Client
	nowFn  func() time.Time
}

// NewService constructs a rates Service. client and nowFn default when nil.
func NewService(db *gorm.DB, cfg config.RatesConfig, client *http.Client, nowFn func() time.Time) *Service {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{db: db, cfg: cfg, client: client, nowFn: nowFn}
}

// UpdateRate sets the stored rate for one currency code.
func (s *Service) UpdateRate(ctx context.Context, code string, rate float64) (*models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if rate <= 0 {
		return nil, ErrInvalidRate
	}

	var currency models.Currency
	errFind := s.db.WithContext(ctx).Where("UPPER(code) = ?", code).First(&currency).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rates: load currency: %w", errFind)
	}

	now := s.nowFn().UTC()
	errUpdate := s.db.WithContext(ctx).Model(&currency).Updates(map[string]any{
		"rate_to_base":    rate,
		"rate_updated_at": now,
		"updated_at":      now,
	}).Error
	if errUpdate != nil {
		return nil, fmt.Errorf("rates: update rate: %w", errUpdate)
	}
	currency.RateToBase = rate
	currency.RateUpdatedAt = &now
	return &currency, nil
}

// feedResponse matches the open.er-api.com payload shape.
type feedResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Refresh pulls the remote feed for the configured base and updates every
// active currency with a quoted rate. The feed quotes units of currency per
// unit of base, so the stored rate is its inverse. Errors are returned for
// the caller to log; scheduled runs never propagate them further.
func (s *Service) Refresh(ctx context.Context) error {
	feed, errFetch := s.fetch(ctx)
	if errFetch != nil {
		return errFetch
	}

	var currencies []models.Currency
	if errFind := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&currencies).Error; errFind != nil {
		return fmt.Errorf("rates: load currencies: %w", errFind)
	}

	now := s.nowFn().UTC()
	updated := 0
	for _, currency := range currencies {
		code := strings.ToUpper(currency.Code)
		if code == strings.ToUpper(s.cfg.Base) {
			continue
		}
		quoted, ok := feed.Rates[code]
		if !ok || quoted <= 0 {
			log.WithField("currency", code).Warn("rates: feed has no usable quote")
			continue
		}
		errUpdate := s.db.WithContext(ctx).Model(&models.Currency{}).
			Where("id = ?", currency.ID).
			Updates(map[string]any{
				"rate_to_base":    1 / quoted,
				"rate_updated_at": now,
				"updated_at":      now,
			}).Error
		if errUpdate != nil {
			return fmt.Errorf("rates: update %s: %w", code, errUpdate)
		}
		updated++
	}
	log.WithField("updated", updated).Info("rates: refresh complete")
	return nil
}

func (s *Service) fetch(ctx context.Context) (*feedResponse, error) {
	url := strings.TrimRight(s.cfg.FeedURL, "/") + "/" + strings.ToUpper(s.cfg.Base)
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if errReq != nil {
		return nil, fmt.Errorf("rates: build request: %w", errReq)
	}
	resp, errDo := s.client.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("rates: fetch feed: %w", errDo)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates: feed returned status %d", resp.StatusCode)
	}
	body, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("rates: read feed: %w", errRead)
	}
	var feed feedResponse
	if errParse := json.Unmarshal(body, &feed); errParse != nil {
		return nil, fmt.Errorf("rates: parse feed: %w", errParse)
	}
	if feed.Result != "success" || len(feed.Rates) == 0 {
		return nil, fmt.Errorf("rates: feed reported %q with %d rates", feed.Result, len(feed.Rates))
	}
	return &feed, nil
}
