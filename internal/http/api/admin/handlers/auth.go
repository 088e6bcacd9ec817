// Package handlers contains the admin API endpoint handlers.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/config"
	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/security"
	"github.com/subtrack-hq/subtrack/internal/settings"
)

// AuthHandler manages admin login and TOTP enrollment.
type AuthHandler struct {
	db     *gorm.DB          // Database handle for admin records.
	jwtCfg config.JWTConfig  // Token signing settings.
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest captures the login payload. Code is only consulted when the
// admin has TOTP enrolled.
type loginRequest struct {
	Username string `json:"username"` // Login name.
	Password string `json:"password"` // Plain password.
	Code     string `json:"code"`     // Optional TOTP code.
}

// findActiveAdmin loads an active admin by username with password verified.
// Failures are indistinguishable to the caller.
func (h *AuthHandler) findActiveAdmin(c *gin.Context, username, password string) (*models.Admin, bool) {
	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(username)).
		First(&admin).Error
	if errFind != nil {
		return nil, false
	}
	if !admin.Active {
		return nil, false
	}
	if !security.CheckPassword(admin.Password, password) {
		return nil, false
	}
	return &admin, true
}

// Login authenticates an admin. When TOTP is enrolled, a valid code must
// accompany the credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	admin, ok := h.findActiveAdmin(c, body.Username, body.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if admin.TOTPSecret != "" {
		if strings.TrimSpace(body.Code) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "mfa_required": true})
			return
		}
		if !security.ValidateTOTPCode(admin.TOTPSecret, body.Code) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
	}

	token, errToken := security.IssueAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": admin.Username,
	})
}

// MFAStatus reports whether TOTP is enrolled for the current admin.
func (h *AuthHandler) MFAStatus(c *gin.Context) {
	admin, ok := currentAdmin(c, h.db)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": admin.TOTPSecret != ""})
}

// PrepareTOTP generates a fresh TOTP secret and provisioning URL. The secret
// only takes effect once confirmed.
func (h *AuthHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := currentAdmin(c, h.db)
	if !ok {
		return
	}
	secret, url, errGenerate := security.GenerateTOTPSecret(settings.DefaultSiteName, admin.Username)
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "totp generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// confirmTOTPRequest carries the prepared secret and a proving code.
type confirmTOTPRequest struct {
	Secret string `json:"secret"` // Secret from PrepareTOTP.
	Code   string `json:"code"`   // Current code for the secret.
}

// ConfirmTOTP enrolls the prepared secret after verifying one code.
func (h *AuthHandler) ConfirmTOTP(c *gin.Context) {
	admin, ok := currentAdmin(c, h.db)
	if !ok {
		return
	}
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Secret) == "" || !security.ValidateTOTPCode(body.Secret, body.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}
	errUpdate := h.db.WithContext(c.Request.Context()).Model(admin).
		UpdateColumn("totp_secret", strings.TrimSpace(body.Secret)).Error
	if errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "totp enrollment failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": true})
}

// disableTOTPRequest requires a current code to drop enrollment.
type disableTOTPRequest struct {
	Code string `json:"code"` // Current TOTP code.
}

// DisableTOTP removes TOTP enrollment after verifying a current code.
func (h *AuthHandler) DisableTOTP(c *gin.Context) {
	admin, ok := currentAdmin(c, h.db)
	if !ok {
		return
	}
	if admin.TOTPSecret == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp not enabled"})
		return
	}
	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTPCode(admin.TOTPSecret, body.Code) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	errUpdate := h.db.WithContext(c.Request.Context()).Model(admin).
		UpdateColumn("totp_secret", "").Error
	if errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "totp disable failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
}

// currentAdmin loads the admin set by the auth middleware. Writes the error
// response itself when the context is missing or stale.
func currentAdmin(c *gin.Context, db *gorm.DB) (*models.Admin, bool) {
	idValue, exists := c.Get("adminID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	id, okCast := idValue.(uint64)
	if !okCast {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	var admin models.Admin
	if errFind := db.WithContext(c.Request.Context()).First(&admin, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &admin, true
}
