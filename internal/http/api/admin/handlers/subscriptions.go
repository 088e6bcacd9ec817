package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/db"
	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/refnum"
	"github.com/subtrack-hq/subtrack/internal/renewal"
	"github.com/subtrack-hq/subtrack/internal/settings"
)

// SubscriptionHandler manages admin CRUD endpoints for subscriptions.
type SubscriptionHandler struct {
	db *gorm.DB // Database handle for subscription records.
}

// NewSubscriptionHandler constructs a subscription handler.
func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{db: db}
}

// createSubscriptionRequest captures the payload for creating a subscription.
type createSubscriptionRequest struct {
	Name                   string  `json:"name"`                     // Subscription name.
	Provider               string  `json:"provider"`                 // Vendor name.
	CategoryID             uint64  `json:"category_id"`              // Category reference.
	Cost                   float64 `json:"cost"`                     // Cost per cycle.
	CurrencyID             uint64  `json:"currency_id"`              // Currency reference.
	BillingCycle           string  `json:"billing_cycle"`            // Renewal cadence.
	PaymentMethod          string  `json:"payment_method"`           // Payment instrument.
	StartDate              string  `json:"start_date"`               // ISO date, defaults today.
	NextRenewalDate        string  `json:"next_renewal_date"`        // ISO date, defaults one cycle out.
	Status                 string  `json:"status"`                   // Lifecycle state.
	NotificationEnabled    *bool   `json:"notification_enabled"`     // Optional reminder flag.
	NotificationDaysBefore *int    `json:"notification_days_before"` // Optional reminder lead days.
	OwnerEmail             string  `json:"owner_email"`              // Responsible employee.
	Notes                  string  `json:"notes"`                    // Free-form notes.
}

// Create validates input, allocates a reference number, and inserts a new
// subscription.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var body createSubscriptionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.Cost <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cost must be a positive number"})
		return
	}
	cycle, okCycle := models.NormalizeBillingCycle(body.BillingCycle)
	if !okCycle {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized billing cycle"})
		return
	}
	payment, okPayment := models.NormalizePaymentMethod(body.PaymentMethod)
	if !okPayment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized payment method"})
		return
	}
	status, okStatus := models.NormalizeSubscriptionStatus(body.Status)
	if !okStatus {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized status"})
		return
	}
	if !h.referenceExists(c, &models.Category{}, body.CategoryID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	if !h.referenceExists(c, &models.Currency{}, body.CurrencyID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown currency"})
		return
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startDate, errStart := parseISODate(body.StartDate, today)
	if errStart != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	renewalDate, errRenewal := parseISODate(body.NextRenewalDate, renewal.NextDate(startDate, cycle))
	if errRenewal != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid next_renewal_date"})
		return
	}

	notificationEnabled := true
	if body.NotificationEnabled != nil {
		notificationEnabled = *body.NotificationEnabled
	}
	notificationDays := settings.DefaultNotificationDaysBefore
	if body.NotificationDaysBefore != nil && *body.NotificationDaysBefore > 0 {
		notificationDays = *body.NotificationDaysBefore
	}

	var sub models.Subscription
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		ref, errRef := refnum.Allocate(tx, refnum.EntitySubscription, now)
		if errRef != nil {
			return errRef
		}
		sub = models.Subscription{
			ReferenceNumber:        ref,
			Name:                   strings.TrimSpace(body.Name),
			Provider:               strings.TrimSpace(body.Provider),
			CategoryID:             body.CategoryID,
			Cost:                   body.Cost,
			CurrencyID:             body.CurrencyID,
			BillingCycle:           cycle,
			PaymentMethod:          payment,
			StartDate:              startDate,
			NextRenewalDate:        renewalDate,
			Status:                 status,
			NotificationEnabled:    notificationEnabled,
			NotificationDaysBefore: notificationDays,
			OwnerEmail:             strings.ToLower(strings.TrimSpace(body.OwnerEmail)),
			Notes:                  body.Notes,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		return tx.Create(&sub).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create subscription failed"})
		return
	}
	c.JSON(http.StatusCreated, formatSubscription(&sub))
}

// List returns subscriptions, optionally filtered by status or search text.
func (h *SubscriptionHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Subscription{})

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if normalized, ok := models.NormalizeSubscriptionStatus(status); ok {
			q = q.Where("status = ?", normalized)
		}
	}
	if categoryQ := strings.TrimSpace(c.Query("category_id")); categoryQ != "" {
		if categoryID, errParse := strconv.ParseUint(categoryQ, 10, 64); errParse == nil {
			q = q.Where("category_id = ?", categoryID)
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		expr := db.CaseInsensitiveLikeExpr(h.db, "name") + " OR " + db.CaseInsensitiveLikeExpr(h.db, "provider")
		q = q.Where(expr, pattern, pattern)
	}

	var rows []models.Subscription
	if errFind := q.Order("next_renewal_date ASC, id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatSubscription(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

// Get fetches a subscription by ID.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatSubscription(sub))
}

// updateSubscriptionRequest captures optional fields for subscription updates.
type updateSubscriptionRequest struct {
	Name                   *string  `json:"name"`                     // Optional name.
	Provider               *string  `json:"provider"`                 // Optional vendor.
	CategoryID             *uint64  `json:"category_id"`              // Optional category.
	Cost                   *float64 `json:"cost"`                     // Optional cost.
	CurrencyID             *uint64  `json:"currency_id"`              // Optional currency.
	BillingCycle           *string  `json:"billing_cycle"`            // Optional cadence.
	PaymentMethod          *string  `json:"payment_method"`           // Optional instrument.
	NextRenewalDate        *string  `json:"next_renewal_date"`        // Optional ISO date.
	Status                 *string  `json:"status"`                   // Optional state.
	NotificationEnabled    *bool    `json:"notification_enabled"`     // Optional reminder flag.
	NotificationDaysBefore *int     `json:"notification_days_before"` // Optional lead days.
	OwnerEmail             *string  `json:"owner_email"`              // Optional owner.
	Notes                  *string  `json:"notes"`                    // Optional notes.
}

// Update applies a partial update to a subscription.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	var body updateSubscriptionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		if strings.TrimSpace(*body.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Provider != nil {
		updates["provider"] = strings.TrimSpace(*body.Provider)
	}
	if body.CategoryID != nil {
		if !h.referenceExists(c, &models.Category{}, *body.CategoryID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
			return
		}
		updates["category_id"] = *body.CategoryID
	}
	if body.Cost != nil {
		if *body.Cost <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cost must be a positive number"})
			return
		}
		updates["cost"] = *body.Cost
	}
	if body.CurrencyID != nil {
		if !h.referenceExists(c, &models.Currency{}, *body.CurrencyID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown currency"})
			return
		}
		updates["currency_id"] = *body.CurrencyID
	}
	if body.BillingCycle != nil {
		cycle, okCycle := models.NormalizeBillingCycle(*body.BillingCycle)
		if !okCycle {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized billing cycle"})
			return
		}
		updates["billing_cycle"] = cycle
	}
	if body.PaymentMethod != nil {
		payment, okPayment := models.NormalizePaymentMethod(*body.PaymentMethod)
		if !okPayment {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized payment method"})
			return
		}
		updates["payment_method"] = payment
	}
	if body.NextRenewalDate != nil {
		renewalDate, errParse := parseISODate(*body.NextRenewalDate, time.Time{})
		if errParse != nil || renewalDate.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid next_renewal_date"})
			return
		}
		updates["next_renewal_date"] = renewalDate
	}
	if body.Status != nil {
		status, okStatus := models.NormalizeSubscriptionStatus(*body.Status)
		if !okStatus {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized status"})
			return
		}
		updates["status"] = status
	}
	if body.NotificationEnabled != nil {
		updates["notification_enabled"] = *body.NotificationEnabled
	}
	if body.NotificationDaysBefore != nil {
		if *body.NotificationDaysBefore <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "notification_days_before must be positive"})
			return
		}
		updates["notification_days_before"] = *body.NotificationDaysBefore
	}
	if body.OwnerEmail != nil {
		updates["owner_email"] = strings.ToLower(strings.TrimSpace(*body.OwnerEmail))
	}
	if body.Notes != nil {
		updates["notes"] = *body.Notes
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, formatSubscription(sub))
		return
	}
	updates["updated_at"] = time.Now().UTC()

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(sub).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update subscription failed"})
		return
	}
	var refreshed models.Subscription
	if errFind := h.db.WithContext(c.Request.Context()).First(&refreshed, sub.ID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatSubscription(&refreshed))
}

// Delete removes a subscription along with its credential and audit trail.
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errCred := tx.Where("subscription_id = ?", sub.ID).Delete(&models.Credential{}).Error; errCred != nil {
			return errCred
		}
		return tx.Delete(&models.Subscription{}, sub.ID).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete subscription failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *SubscriptionHandler) load(c *gin.Context) (*models.Subscription, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var sub models.Subscription
	if errFind := h.db.WithContext(c.Request.Context()).First(&sub, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &sub, true
}

func (h *SubscriptionHandler) referenceExists(c *gin.Context, model any, id uint64) bool {
	if id == 0 {
		return false
	}
	var count int64
	errCount := h.db.WithContext(c.Request.Context()).Model(model).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return errCount == nil && count > 0
}

func formatSubscription(sub *models.Subscription) gin.H {
	return gin.H{
		"id":                       sub.ID,
		"reference_number":         sub.ReferenceNumber,
		"name":                     sub.Name,
		"provider":                 sub.Provider,
		"category_id":              sub.CategoryID,
		"cost":                     sub.Cost,
		"currency_id":              sub.CurrencyID,
		"billing_cycle":            sub.BillingCycle,
		"payment_method":           sub.PaymentMethod,
		"start_date":               sub.StartDate.Format("2006-01-02"),
		"next_renewal_date":        sub.NextRenewalDate.Format("2006-01-02"),
		"status":                   sub.Status,
		"notification_enabled":     sub.NotificationEnabled,
		"notification_days_before": sub.NotificationDaysBefore,
		"last_notified_at":         sub.LastNotifiedAt,
		"owner_email":              sub.OwnerEmail,
		"notes":                    sub.Notes,
		"created_at":               sub.CreatedAt,
		"updated_at":               sub.UpdatedAt,
	}
}

// parseISODate parses an ISO date, returning the fallback when blank.
func parseISODate(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, errParse := time.Parse("2006-01-02", raw)
	if errParse != nil {
		return time.Time{}, errParse
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}
