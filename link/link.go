package link

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"findlink/auth"
	"findlink/models"
)

type LinkModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewLinkModule(db *gorm.DB, authModule *auth.AuthModule) *LinkModule {
	return &LinkModule{db: db, auth: authModule}
}

func (l *LinkModule) RegisterRoutes(router *gin.Engine) {
	linkGroup := router.Group("/api/links")
	{
		linkGroup.GET("/user/:userId", l.listByUser)
		linkGroup.POST("/:id/clicks", l.incrementClicks)

		linkGroup.POST("", l.auth.RequireAuth, l.create)
		linkGroup.GET("", l.auth.RequireAuth, l.listOwn)
		linkGroup.GET("/:id", l.auth.RequireAuth, l.get)
		linkGroup.PATCH("/:id", l.auth.RequireAuth, l.update)
		linkGroup.PATCH("/:id/toggle", l.auth.RequireAuth, l.toggleActive)
		linkGroup.POST("/reorder", l.auth.RequireAuth, l.reorder)
		linkGroup.DELETE("/:id", l.auth.RequireAuth, l.remove)
	}
}

type createLinkRequest struct {
	Title           string  `json:"title" binding:"required,max=100"`
	URL             string  `json:"url" binding:"required,url"`
	Icon            string  `json:"icon" binding:"omitempty,max=10"`
	IsActive        *bool   `json:"isActive"`
	BackgroundColor *string `json:"backgroundColor" binding:"omitempty,hexcolor"`
}

// create appends the new link at the end of the owner's sequence:
// one past the current highest position, or 0 for the first link.
func (l *LinkModule) create(c *gin.Context) {
	current := auth.CurrentUser(c)

	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	icon := req.Icon
	if icon == "" {
		icon = "🔗"
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	link := models.Link{
		UserID:          current.ID,
		Title:           req.Title,
		URL:             req.URL,
		Icon:            icon,
		IsActive:        isActive,
		BackgroundColor: req.BackgroundColor,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var last models.Link
		err := tx.Where("user_id = ?", current.ID).
			Order("sort_order DESC").First(&last).Error
		switch {
		case err == nil:
			link.Order = last.Order + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			link.Order = 0
		default:
			return err
		}

		return tx.Create(&link).Error
	})
	if err != nil {
		log.Printf("create link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create link"})
		return
	}

	c.JSON(http.StatusCreated, link)
}

func (l *LinkModule) listOwn(c *gin.Context) {
	current := auth.CurrentUser(c)

	var links []models.Link
	if err := l.db.Where("user_id = ?", current.ID).
		Order("sort_order ASC").Find(&links).Error; err != nil {
		log.Printf("list links: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list links"})
		return
	}

	c.JSON(http.StatusOK, links)
}

func (l *LinkModule) listByUser(c *gin.Context) {
	var links []models.Link
	if err := l.db.Where("user_id = ? AND is_active = ?", c.Param("userId"), true).
		Order("sort_order ASC").Find(&links).Error; err != nil {
		log.Printf("list links by user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list links"})
		return
	}

	c.JSON(http.StatusOK, links)
}

func (l *LinkModule) get(c *gin.Context) {
	current := auth.CurrentUser(c)

	var link models.Link
	if err := l.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	c.JSON(http.StatusOK, link)
}

type updateLinkRequest struct {
	Title           *string `json:"title" binding:"omitempty,max=100"`
	URL             *string `json:"url" binding:"omitempty,url"`
	Icon            *string `json:"icon" binding:"omitempty,max=10"`
	IsActive        *bool   `json:"isActive"`
	BackgroundColor *string `json:"backgroundColor" binding:"omitempty,hexcolor"`
}

func (l *LinkModule) update(c *gin.Context) {
	current := auth.CurrentUser(c)

	var link models.Link
	if err := l.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	var req updateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != nil {
		link.Title = *req.Title
	}
	if req.URL != nil {
		link.URL = *req.URL
	}
	if req.Icon != nil {
		link.Icon = *req.Icon
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}
	if req.BackgroundColor != nil {
		link.BackgroundColor = req.BackgroundColor
	}

	if err := l.db.Save(&link).Error; err != nil {
		log.Printf("update link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update link"})
		return
	}

	c.JSON(http.StatusOK, link)
}

func (l *LinkModule) toggleActive(c *gin.Context) {
	current := auth.CurrentUser(c)

	var link models.Link
	if err := l.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	link.IsActive = !link.IsActive
	if err := l.db.Save(&link).Error; err != nil {
		log.Printf("toggle link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle link"})
		return
	}

	c.JSON(http.StatusOK, link)
}

func (l *LinkModule) incrementClicks(c *gin.Context) {
	var link models.Link
	if err := l.db.First(&link, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	if err := l.db.Model(&link).
		UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error; err != nil {
		log.Printf("increment clicks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record click"})
		return
	}
	link.Clicks++

	c.JSON(http.StatusOK, link)
}

type reorderItem struct {
	ID    string `json:"id" binding:"required"`
	Order int    `json:"order" binding:"min=0"`
}

type reorderRequest struct {
	Items []reorderItem `json:"items" binding:"required,min=1,dive"`
}

// reorder applies a bulk position update. Every referenced link must
// belong to the caller, and the whole rewrite happens in one
// transaction so a concurrent delete cannot tear the sequence.
func (l *LinkModule) reorder(c *gin.Context) {
	current := auth.CurrentUser(c)

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var links []models.Link
		if err := tx.Where("user_id = ?", current.ID).Find(&links).Error; err != nil {
			return err
		}

		owned := make(map[string]bool, len(links))
		for _, link := range links {
			owned[link.ID] = true
		}

		for _, item := range req.Items {
			if !owned[item.ID] {
				return &foreignLinkError{id: item.ID}
			}
		}

		for _, item := range req.Items {
			if err := tx.Model(&models.Link{}).Where("id = ?", item.ID).
				UpdateColumn("sort_order", item.Order).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		if ferr, ok := err.(*foreignLinkError); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": ferr.Error()})
			return
		}
		log.Printf("reorder links: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reorder links"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "links reordered"})
}

type foreignLinkError struct {
	id string
}

func (e *foreignLinkError) Error() string {
	return fmt.Sprintf("link %s does not belong to the user", e.id)
}

// remove deletes a link and closes the gap it leaves, reassigning the
// remaining links to a dense 0..N-1 sequence inside one transaction.
func (l *LinkModule) remove(c *gin.Context) {
	current := auth.CurrentUser(c)

	var link models.Link
	if err := l.db.Where("id = ? AND user_id = ?", c.Param("id"), current.ID).
		First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&link).Error; err != nil {
			return err
		}

		var remaining []models.Link
		if err := tx.Where("user_id = ?", current.ID).
			Order("sort_order ASC").Find(&remaining).Error; err != nil {
			return err
		}

		for i := range remaining {
			if remaining[i].Order == i {
				continue
			}
			if err := tx.Model(&remaining[i]).
				UpdateColumn("sort_order", i).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Printf("delete link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete link"})
		return
	}

	c.Status(http.StatusNoContent)
}
