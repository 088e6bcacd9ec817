package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/rates"
)

// CurrencyHandler manages admin endpoints for currencies and exchange rates.
type CurrencyHandler struct {
	db    *gorm.DB       // Database handle for currency records.
	rates *rates.Service // Rate update and feed refresh service.
}

// NewCurrencyHandler constructs a currency handler.
func NewCurrencyHandler(db *gorm.DB, ratesService *rates.Service) *CurrencyHandler {
	return &CurrencyHandler{db: db, rates: ratesService}
}

// createCurrencyRequest captures the payload for creating a currency.
type createCurrencyRequest struct {
	Code       string  `json:"code"`         // ISO 4217 code.
	Name       string  `json:"name"`         // Display name.
	Symbol     string  `json:"symbol"`       // Display symbol.
	RateToBase float64 `json:"rate_to_base"` // Units of base per unit.
	IsActive   *bool   `json:"is_active"`    // Optional active flag.
}

// Create inserts a new currency. Duplicate codes are a conflict.
func (h *CurrencyHandler) Create(c *gin.Context) {
	var body createCurrencyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	if len(code) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code must be a 3-letter currency code"})
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.RateToBase <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate_to_base must be positive"})
		return
	}

	var count int64
	errCount := h.db.WithContext(c.Request.Context()).Model(&models.Currency{}).
		Where("UPPER(code) = ?", code).
		Count(&count).Error
	if errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "currency already exists"})
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}
	currency := models.Currency{
		Code:       code,
		Name:       strings.TrimSpace(body.Name),
		Symbol:     strings.TrimSpace(body.Symbol),
		RateToBase: body.RateToBase,
		IsActive:   isActive,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&currency).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create currency failed"})
		return
	}
	c.JSON(http.StatusCreated, formatCurrency(&currency))
}

// List returns all currencies.
func (h *CurrencyHandler) List(c *gin.Context) {
	var rows []models.Currency
	errFind := h.db.WithContext(c.Request.Context()).
		Order("code ASC").
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list currencies failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatCurrency(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"currencies": out})
}

// updateCurrencyRequest captures optional fields for currency updates.
type updateCurrencyRequest struct {
	Name     *string `json:"name"`      // Optional display name.
	Symbol   *string `json:"symbol"`    // Optional symbol.
	IsActive *bool   `json:"is_active"` // Optional active flag.
}

// Update applies a partial update to a currency, addressed by code. Rates
// change through UpdateRate so the refresh timestamp stays accurate.
func (h *CurrencyHandler) Update(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	var currency models.Currency
	if errFind := h.db.WithContext(c.Request.Context()).Where("UPPER(code) = ?", code).First(&currency).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var body updateCurrencyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updates := map[string]any{}
	if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Symbol != nil {
		updates["symbol"] = strings.TrimSpace(*body.Symbol)
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if errUpdate := h.db.WithContext(c.Request.Context()).Model(&currency).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update currency failed"})
			return
		}
		if errFind := h.db.WithContext(c.Request.Context()).First(&currency, currency.ID).Error; errFind != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
	}
	c.JSON(http.StatusOK, formatCurrency(&currency))
}

// updateRateRequest carries a manual rate override.
type updateRateRequest struct {
	Rate float64 `json:"rate"` // Units of base per unit.
}

// UpdateRate sets the exchange rate for one currency by code.
func (h *CurrencyHandler) UpdateRate(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	var body updateRateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	currency, errUpdate := h.rates.UpdateRate(c.Request.Context(), code, body.Rate)
	if errUpdate != nil {
		switch {
		case errors.Is(errUpdate, rates.ErrInvalidRate):
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be positive"})
		case errors.Is(errUpdate, rates.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update rate failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatCurrency(currency))
}

// Refresh pulls the remote feed and updates all active currency rates.
func (h *CurrencyHandler) Refresh(c *gin.Context) {
	if errRefresh := h.rates.Refresh(c.Request.Context()); errRefresh != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "rate refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

func formatCurrency(currency *models.Currency) gin.H {
	return gin.H{
		"id":              currency.ID,
		"code":            currency.Code,
		"name":            currency.Name,
		"symbol":          currency.Symbol,
		"rate_to_base":    currency.RateToBase,
		"is_active":       currency.IsActive,
		"rate_updated_at": currency.RateUpdatedAt,
		"created_at":      currency.CreatedAt,
		"updated_at":      currency.UpdatedAt,
	}
}
