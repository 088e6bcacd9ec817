package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// CategoryHandler manages admin CRUD endpoints for categories.
type CategoryHandler struct {
	db *gorm.DB // Database handle for category records.
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{db: db}
}

// categoryRequest captures the category create/update payload.
type categoryRequest struct {
	Name        string `json:"name"`        // Category name.
	Description string `json:"description"` // Optional description.
	IsActive    *bool  `json:"is_active"`   // Optional active flag.
}

// Create inserts a new category. Names are unique case-insensitively.
func (h *CategoryHandler) Create(c *gin.Context) {
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	var count int64
	errCount := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error
	if errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "category already exists"})
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}
	category := models.Category{
		Name:        name,
		Description: body.Description,
		IsActive:    isActive,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&category).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create category failed"})
		return
	}
	c.JSON(http.StatusCreated, formatCategory(&category))
}

// List returns all categories.
func (h *CategoryHandler) List(c *gin.Context) {
	var rows []models.Category
	errFind := h.db.WithContext(c.Request.Context()).
		Order("name ASC").
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatCategory(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// Update applies a partial update to a category.
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var category models.Category
	if errFind := h.db.WithContext(c.Request.Context()).First(&category, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updates := map[string]any{}
	if name := strings.TrimSpace(body.Name); name != "" {
		updates["name"] = name
	}
	if body.Description != "" {
		updates["description"] = body.Description
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if errUpdate := h.db.WithContext(c.Request.Context()).Model(&category).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update category failed"})
			return
		}
		if errFind := h.db.WithContext(c.Request.Context()).First(&category, category.ID).Error; errFind != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
	}
	c.JSON(http.StatusOK, formatCategory(&category))
}

// Delete deactivates a category. Rows are kept because subscriptions and
// requests reference them.
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete category failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func formatCategory(category *models.Category) gin.H {
	return gin.H{
		"id":          category.ID,
		"name":        category.Name,
		"description": category.Description,
		"is_active":   category.IsActive,
		"created_at":  category.CreatedAt,
		"updated_at":  category.UpdatedAt,
	}
}
