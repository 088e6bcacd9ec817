package rates

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrack-hq/subtrack/internal/config"
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
	if errMigrate := conn.AutoMigrate(&models.Currency{}); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}
	seed := []models.Currency{
		{Code: "INR", Name: "Indian Rupee", RateToBase: 1, IsActive: true},
		{Code: "USD", Name: "US Dollar", RateToBase: 80, IsActive: true},
		{Code: "GBP", Name: "Pound Sterling", RateToBase: 100, IsActive: false},
	}
	for i := range seed {
		if errSeed := conn.Create(&seed[i]).Error; errSeed != nil {
			t.Fatalf("seed test db: %v", errSeed)
		}
	}
	return conn
}

func TestUpdateRate(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)
	svc := NewService(conn, config.RatesConfig{Base: "INR"}, nil, func() time.Time { return now })

	currency, err := svc.UpdateRate(context.Background(), "usd", 83.25)
	if err != nil {
		t.Fatalf("update rate: %v", err)
	}
	if currency.RateToBase != 83.25 {
		t.Fatalf("expected 83.25, got %v", currency.RateToBase)
	}
	if currency.RateUpdatedAt == nil || !currency.RateUpdatedAt.Equal(now) {
		t.Fatalf("expected rate timestamp %v, got %v", now, currency.RateUpdatedAt)
	}

	if _, errUnknown := svc.UpdateRate(context.Background(), "JPY", 0.5); !errors.Is(errUnknown, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errUnknown)
	}
	if _, errBad := svc.UpdateRate(context.Background(), "USD", 0); !errors.Is(errBad, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", errBad)
	}
}

func TestRefreshUpdatesActiveCurrencies(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/INR" {
			t.Fatalf("expected base path /INR, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"INR","rates":{"INR":1,"USD":0.0125,"GBP":0.0095}}`))
	}))
	defer server.Close()

	svc := NewService(conn, config.RatesConfig{FeedURL: server.URL, Base: "INR"}, server.Client(), func() time.Time { return now })
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	var usd models.Currency
	if errFind := conn.Where("code = ?", "USD").First(&usd).Error; errFind != nil {
		t.Fatalf("load USD: %v", errFind)
	}
	if math.Abs(usd.RateToBase-80.0) > 0.001 {
		t.Fatalf("expected inverted quote 80, got %v", usd.RateToBase)
	}
	if usd.RateUpdatedAt == nil {
		t.Fatalf("expected rate timestamp set")
	}

	var inr models.Currency
	if errFind := conn.Where("code = ?", "INR").First(&inr).Error; errFind != nil {
		t.Fatalf("load INR: %v", errFind)
	}
	if inr.RateToBase != 1 {
		t.Fatalf("base currency rate must stay 1, got %v", inr.RateToBase)
	}

	var gbp models.Currency
	if errFind := conn.Where("code = ?", "GBP").First(&gbp).Error; errFind != nil {
		t.Fatalf("load GBP: %v", errFind)
	}
	if gbp.RateToBase != 100 {
		t.Fatalf("inactive currency must be untouched, got %v", gbp.RateToBase)
	}
}

func TestRefreshFeedFailure(t *testing.T) {
	conn := newTestDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(conn, config.RatesConfig{FeedURL: server.URL, Base: "INR"}, server.Client(), nil)
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error from failing feed")
	}

	var usd models.Currency
	if errFind := conn.Where("code = ?", "USD").First(&usd).Error; errFind != nil {
		t.Fatalf("load USD: %v", errFind)
	}
	if usd.RateToBase != 80 {
		t.Fatalf("failed refresh must not change rates, got %v", usd.RateToBase)
	}
}
