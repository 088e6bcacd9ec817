// Package admin wires the authenticated admin API surface.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/bulkimport"
	"github.com/subtrack-hq/subtrack/internal/config"
	handlers "github.com/subtrack-hq/subtrack/internal/http/api/admin/handlers"
	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/rates"
	"github.com/subtrack-hq/subtrack/internal/requests"
	"github.com/subtrack-hq/subtrack/internal/security"
	"github.com/subtrack-hq/subtrack/internal/vault"
)

// Services carries the domain services the admin handlers depend on.
type Services struct {
	Requests *requests.Service
	Vault    *vault.Service
	Rates    *rates.Service
	Importer *bulkimport.Importer
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, services Services) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	authed.GET("/mfa/status", authHandler.MFAStatus)
	authed.POST("/mfa/totp/prepare", authHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", authHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", authHandler.DisableTOTP)

	subscriptionHandler := handlers.NewSubscriptionHandler(db)
	authed.POST("/subscriptions", subscriptionHandler.Create)
	authed.GET("/subscriptions", subscriptionHandler.List)
	authed.GET("/subscriptions/:id", subscriptionHandler.Get)
	authed.PUT("/subscriptions/:id", subscriptionHandler.Update)
	authed.DELETE("/subscriptions/:id", subscriptionHandler.Delete)

	credentialHandler := handlers.NewCredentialHandler(services.Vault)
	authed.PUT("/subscriptions/:id/credential", credentialHandler.Put)
	authed.POST("/subscriptions/:id/credential/reveal", credentialHandler.Reveal)
	authed.GET("/subscriptions/:id/credential/audit", credentialHandler.AuditLog)

	requestHandler := handlers.NewRequestHandler(db, services.Requests)
	authed.GET("/requests", requestHandler.List)
	authed.GET("/requests/:id", requestHandler.Get)
	authed.POST("/requests/:id/approve", requestHandler.Approve)
	authed.POST("/requests/:id/reject", requestHandler.Reject)

	categoryHandler := handlers.NewCategoryHandler(db)
	authed.POST("/categories", categoryHandler.Create)
	authed.GET("/categories", categoryHandler.List)
	authed.PUT("/categories/:id", categoryHandler.Update)
	authed.DELETE("/categories/:id", categoryHandler.Delete)

	currencyHandler := handlers.NewCurrencyHandler(db, services.Rates)
	authed.POST("/currencies", currencyHandler.Create)
	authed.GET("/currencies", currencyHandler.List)
	authed.PUT("/currencies/:code", currencyHandler.Update)
	authed.PUT("/currencies/:code/rate", currencyHandler.UpdateRate)
	authed.POST("/currencies/refresh", currencyHandler.Refresh)

	importHandler := handlers.NewImportHandler(db, services.Importer)
	authed.POST("/imports/analyze", importHandler.Analyze)
	authed.POST("/imports", importHandler.Import)

	settingHandler := handlers.NewSettingHandler(db)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
}

// adminAuthMiddleware validates admin JWTs and loads admin context. Failure
// responses stay generic so probing cannot distinguish causes.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
