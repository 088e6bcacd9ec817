package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/vault"
)

// CredentialHandler manages the credential vault endpoints. Plaintext only
// ever leaves through Reveal, which audits in the same transaction.
type CredentialHandler struct {
	service *vault.Service // Vault service with the AEAD cipher.
}

// NewCredentialHandler constructs a credential handler.
func NewCredentialHandler(service *vault.Service) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// putCredentialRequest captures the payload for storing a credential.
type putCredentialRequest struct {
	Username string `json:"username"` // Account username at the vendor.
	Password string `json:"password"` // Plain password to encrypt.
	Notes    string `json:"notes"`    // Free-form notes.
}

// Put creates the subscription's credential, or replaces it when one exists.
func (h *CredentialHandler) Put(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body putCredentialRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	performedBy := c.GetString("adminUsername")
	_, errCreate := h.service.Create(c.Request.Context(), id, body.Username, body.Password, body.Notes, performedBy)
	if errCreate == nil {
		c.JSON(http.StatusCreated, gin.H{"stored": true})
		return
	}
	if errors.Is(errCreate, vault.ErrDuplicateCredential) {
		errUpdate := h.service.Update(c.Request.Context(), id, body.Username, body.Password, body.Notes, performedBy)
		if errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store credential failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stored": true})
		return
	}
	if errors.Is(errCreate, vault.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store credential failed"})
}

// revealRequest names the audit action for a reveal.
type revealRequest struct {
	Action string `json:"action"` // "viewed" or "copied".
}

// Reveal decrypts the credential and returns the plaintext. The audit entry
// is written before the response.
func (h *CredentialHandler) Reveal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body revealRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	action := strings.ToLower(strings.TrimSpace(body.Action))
	if action == "" {
		action = models.AuditActionViewed
	}

	result, errReveal := h.service.Reveal(c.Request.Context(), id, action, c.GetString("adminUsername"))
	if errReveal != nil {
		switch {
		case errors.Is(errReveal, vault.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		case errors.Is(errReveal, vault.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reveal failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username": result.Username,
		"password": result.Plaintext,
		"notes":    result.Notes,
	})
}

// AuditLog lists the subscription's credential audit entries, newest first.
func (h *CredentialHandler) AuditLog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entries, errList := h.service.AuditLog(c.Request.Context(), id)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list audit log failed"})
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"subscription_id":   entry.SubscriptionID,
			"subscription_name": entry.SubscriptionName,
			"action":            entry.Action,
			"performed_by":      entry.PerformedBy,
			"performed_at":      entry.PerformedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"audit": out})
}
