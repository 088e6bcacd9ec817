// Package front wires the unauthenticated public API surface.
package front

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handlers "github.com/subtrack-hq/subtrack/internal/http/api/front/handlers"
	"github.com/subtrack-hq/subtrack/internal/requests"
)

// RegisterFrontRoutes registers the public routes and handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, requestService *requests.Service) {
	if r == nil || db == nil {
		return
	}

	frontGroup := r.Group("/v0")

	requestHandler := handlers.NewRequestFrontHandler(requestService)
	frontGroup.POST("/requests", requestHandler.Submit)

	catalogHandler := handlers.NewCatalogFrontHandler(db)
	frontGroup.GET("/categories", catalogHandler.Categories)
	frontGroup.GET("/currencies", catalogHandler.Currencies)
}
