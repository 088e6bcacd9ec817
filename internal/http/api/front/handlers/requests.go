// Package handlers contains the public front API endpoint handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subtrack-hq/subtrack/internal/requests"
)

// maxSubmissionBodyBytes caps the public submission payload.
const maxSubmissionBodyBytes = 64 << 10

// RequestFrontHandler serves the public subscription-request endpoint.
type RequestFrontHandler struct {
	service *requests.Service // Submission workflow service.
}

// NewRequestFrontHandler constructs a RequestFrontHandler.
func NewRequestFrontHandler(service *requests.Service) *RequestFrontHandler {
	return &RequestFrontHandler{service: service}
}

// submitRequestBody captures the public submission payload.
type submitRequestBody struct {
	RequesterName  string  `json:"requester_name"`  // Submitting employee's name.
	RequesterEmail string  `json:"requester_email"` // Submitting employee's email.
	Name           string  `json:"name"`            // Requested subscription name.
	Provider       string  `json:"provider"`        // Vendor name.
	Justification  string  `json:"justification"`   // Why it is needed.
	Cost           float64 `json:"cost"`            // Expected cost per cycle.
	Category       string  `json:"category"`        // Category name.
	Currency       string  `json:"currency"`        // Currency code, defaults to INR.
	BillingCycle   string  `json:"billing_cycle"`   // Renewal cadence.
}

// Submit accepts a public subscription request. Rate limit exhaustion gets a
// deliberately generic throttling message.
func (h *RequestFrontHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmissionBodyBytes)

	var body submitRequestBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	request, errSubmit := h.service.Submit(c.Request.Context(), requests.SubmitInput{
		RequesterName:  body.RequesterName,
		RequesterEmail: body.RequesterEmail,
		Name:           body.Name,
		Provider:       body.Provider,
		Justification:  body.Justification,
		Cost:           body.Cost,
		Category:       body.Category,
		Currency:       body.Currency,
		BillingCycle:   body.BillingCycle,
	})
	if errSubmit != nil {
		var verr *requests.ValidationError
		switch {
		case errors.As(errSubmit, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission", "fields": verr.Fields})
		case errors.Is(errSubmit, requests.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submit failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reference_number": request.ReferenceNumber,
		"status":           request.Status,
	})
}
