package category

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"findlink/auth"
	"findlink/models"
)

type CategoryModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewCategoryModule(db *gorm.DB, authModule *auth.AuthModule) *CategoryModule {
	return &CategoryModule{db: db, auth: authModule}
}

func (m *CategoryModule) RegisterRoutes(router *gin.Engine) {
	categoryGroup := router.Group("/api/categories")
	{
		categoryGroup.GET("/user/:userId", m.listByUser)

		categoryGroup.POST("", m.auth.RequireAuth, m.create)
		categoryGroup.GET("", m.auth.RequireAuth, m.listOwn)
		categoryGroup.GET("/:id", m.auth.RequireAuth, m.get)
		categoryGroup.PATCH("/:id", m.auth.RequireAuth, m.update)
		categoryGroup.PATCH("/:id/toggle-featured", m.auth.RequireAuth, m.toggleFeatured)
		categoryGroup.DELETE("/:id", m.auth.RequireAuth, m.remove)
	}
}

type createCategoryRequest struct {
	Name       string `json:"name" binding:"required,max=50"`
	Type       string `json:"type" binding:"omitempty,oneof=skill interest profession"`
	IsFeatured bool   `json:"isFeatured"`
}

func (m *CategoryModule) create(c *gin.Context) {
	current := auth.CurrentUser(c)

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slug := generateSlug(req.Name)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name does not produce a usable slug"})
		return
	}

	var existing models.UserCategory
	err := m.db.Where("user_id = ? AND slug = ?", current.ID, slug).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a category with that name already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("create category: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create category"})
		return
	}

	categoryType := req.Type
	if categoryType == "" {
		categoryType = "interest"
	}

	category := models.UserCategory{
		UserID:     current.ID,
		Name:       req.Name,
		Slug:       slug,
		Type:       categoryType,
		IsFeatured: req.IsFeatured,
	}

	if err := m.db.Create(&category).Error; err != nil {
		log.Printf("create category: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (m *CategoryModule) listOwn(c *gin.Context) {
	current := auth.CurrentUser(c)

	query := m.db.Where("user_id = ?", current.ID)
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	if f := c.Query("featured"); f != "" {
		query = query.Where("is_featured = ?", f == "true")
	}

	var categories []models.UserCategory
	if err := query.Order("is_featured DESC, created_at DESC").Find(&categories).Error; err != nil {
		log.Printf("list categories: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

func (m *CategoryModule) listByUser(c *gin.Context) {
	var categories []models.UserCategory
	if err := m.db.Where("user_id = ?", c.Param("userId")).
		Order("is_featured DESC, created_at DESC").Find(&categories).Error; err != nil {
		log.Printf("list categories by user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

func (m *CategoryModule) get(c *gin.Context) {
	current := auth.CurrentUser(c)

	var category models.UserCategory
	if err := m.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	c.JSON(http.StatusOK, category)
}

type updateCategoryRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=50"`
	Type       *string `json:"type" binding:"omitempty,oneof=skill interest profession"`
	IsFeatured *bool   `json:"isFeatured"`
}

// update recomputes the slug whenever the name changes, subject to the
// same per-user uniqueness rule as creation.
func (m *CategoryModule) update(c *gin.Context) {
	current := auth.CurrentUser(c)

	var category models.UserCategory
	if err := m.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil && *req.Name != category.Name {
		slug := generateSlug(*req.Name)
		if slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name does not produce a usable slug"})
			return
		}

		if slug != category.Slug {
			var count int64
			if err := m.db.Model(&models.UserCategory{}).
				Where("user_id = ? AND slug = ?", current.ID, slug).
				Count(&count).Error; err != nil {
				log.Printf("update category: lookup failed: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update category"})
				return
			}
			if count > 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "a category with that name already exists"})
				return
			}
		}

		category.Name = *req.Name
		category.Slug = slug
	}
	if req.Type != nil {
		category.Type = *req.Type
	}
	if req.IsFeatured != nil {
		category.IsFeatured = *req.IsFeatured
	}

	if err := m.db.Save(&category).Error; err != nil {
		log.Printf("update category: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

func (m *CategoryModule) toggleFeatured(c *gin.Context) {
	current := auth.CurrentUser(c)

	var category models.UserCategory
	if err := m.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	category.IsFeatured = !category.IsFeatured
	if err := m.db.Save(&category).Error; err != nil {
		log.Printf("toggle category: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

func (m *CategoryModule) remove(c *gin.Context) {
	current := auth.CurrentUser(c)

	result := m.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		Delete(&models.UserCategory{})
	if result.Error != nil {
		log.Printf("delete category: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete category"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func generateSlug(name string) string {
	// Accented characters mapped to their plain equivalents
	accentMap := map[rune]rune{
		'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a',
		'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e',
		'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
		'ó': 'o', 'ò': 'o', 'õ': 'o', 'ô': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
		'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
		'ç': 'c', 'ć': 'c', 'č': 'c',
		'ñ': 'n', 'ń': 'n',
		'ý': 'y', 'ÿ': 'y',
		'ß': 's',
	}

	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		if replacement, exists := accentMap[r]; exists {
			return replacement
		}
		return r
	}, slug)

	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}
