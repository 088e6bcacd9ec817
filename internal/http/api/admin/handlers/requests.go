package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/requests"
)

// RequestHandler manages admin endpoints for subscription requests.
type RequestHandler struct {
	db      *gorm.DB          // Database handle for request records.
	service *requests.Service // Workflow service for approve/reject.
}

// NewRequestHandler constructs a request handler.
func NewRequestHandler(db *gorm.DB, service *requests.Service) *RequestHandler {
	return &RequestHandler{db: db, service: service}
}

// List returns subscription requests, optionally filtered by status.
func (h *RequestHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.SubscriptionRequest{})

	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		switch status {
		case models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected:
			q = q.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized status"})
			return
		}
	}

	var rows []models.SubscriptionRequest
	if errFind := q.Order("created_at DESC, id DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list requests failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatRequest(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

// Get fetches a request by ID.
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var request models.SubscriptionRequest
	if errFind := h.db.WithContext(c.Request.Context()).First(&request, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatRequest(&request))
}

// reviewRequestBody carries optional reviewer notes or the rejection reason.
type reviewRequestBody struct {
	Notes  string `json:"notes"`  // Optional approval notes.
	Reason string `json:"reason"` // Rejection reason.
}

// Approve approves a pending request and returns the created subscription.
func (h *RequestHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body reviewRequestBody
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	sub, errApprove := h.service.Approve(c.Request.Context(), id, c.GetString("adminUsername"), body.Notes)
	if errApprove != nil {
		switch {
		case errors.Is(errApprove, requests.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errApprove, requests.ErrNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "request is not pending"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "approve failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": formatSubscription(sub)})
}

// Reject rejects a pending request with a required reason.
func (h *RequestHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body reviewRequestBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	request, errReject := h.service.Reject(c.Request.Context(), id, c.GetString("adminUsername"), body.Reason)
	if errReject != nil {
		switch {
		case errors.Is(errReject, requests.ErrInvalidReason):
			c.JSON(http.StatusBadRequest, gin.H{"error": errReject.Error()})
		case errors.Is(errReject, requests.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errReject, requests.ErrNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "request is not pending"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reject failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatRequest(request))
}

func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func formatRequest(request *models.SubscriptionRequest) gin.H {
	return gin.H{
		"id":               request.ID,
		"reference_number": request.ReferenceNumber,
		"requester_name":   request.RequesterName,
		"requester_email":  request.RequesterEmail,
		"name":             request.Name,
		"provider":         request.Provider,
		"justification":    request.Justification,
		"category_id":      request.CategoryID,
		"cost":             request.Cost,
		"currency_id":      request.CurrencyID,
		"billing_cycle":    request.BillingCycle,
		"status":           request.Status,
		"admin_notes":      request.AdminNotes,
		"reviewed_by":      request.ReviewedBy,
		"reviewed_at":      request.ReviewedAt,
		"created_at":       request.CreatedAt,
		"updated_at":       request.UpdatedAt,
	}
}
