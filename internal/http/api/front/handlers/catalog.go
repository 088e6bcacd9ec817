package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// CatalogFrontHandler serves the public lookup tables the submission form
// needs.
type CatalogFrontHandler struct {
	db *gorm.DB
}

// NewCatalogFrontHandler constructs a CatalogFrontHandler.
func NewCatalogFrontHandler(db *gorm.DB) *CatalogFrontHandler {
	return &CatalogFrontHandler{db: db}
}

// Categories returns active categories.
func (h *CatalogFrontHandler) Categories(c *gin.Context) {
	var rows []models.Category
	errFind := h.db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"name":        row.Name,
			"description": row.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// Currencies returns active currencies.
func (h *CatalogFrontHandler) Currencies(c *gin.Context) {
	var rows []models.Currency
	errFind := h.db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		Order("code ASC").
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list currencies failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":     row.ID,
			"code":   row.Code,
			"name":   row.Name,
			"symbol": row.Symbol,
		})
	}
	c.JSON(http.StatusOK, gin.H{"currencies": out})
}
