package theme

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"findlink/auth"
	"findlink/models"
)

type ThemeModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewThemeModule(db *gorm.DB, authModule *auth.AuthModule) *ThemeModule {
	return &ThemeModule{db: db, auth: authModule}
}

func (t *ThemeModule) RegisterRoutes(router *gin.Engine) {
	themeGroup := router.Group("/api/themes")
	{
		themeGroup.GET("/user/:userId", t.getByUser)

		themeGroup.GET("/me", t.auth.RequireAuth, t.getOwn)
		themeGroup.PUT("/me", t.auth.RequireAuth, t.updateOwn)
		themeGroup.DELETE("/me", t.auth.RequireAuth, t.removeOwn)
	}
}

// GetOrCreate returns the user's theme, creating one with the stock
// defaults on first read.
func GetOrCreate(db *gorm.DB, userID string) (*models.Theme, error) {
	var theme models.Theme
	err := db.Where("user_id = ?", userID).First(&theme).Error
	if err == nil {
		return &theme, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	theme = defaultTheme(userID)
	if err := db.Create(&theme).Error; err != nil {
		return nil, err
	}

	return &theme, nil
}

func defaultTheme(userID string) models.Theme {
	return models.Theme{
		UserID:          userID,
		PrimaryColor:    "#6366f1",
		BackgroundColor: "#ffffff",
		ButtonStyle:     "rounded",
		FontFamily:      "system-ui",
		ShowAnimations:  true,
	}
}

func (t *ThemeModule) getByUser(c *gin.Context) {
	var user models.User
	if err := t.db.First(&user, "id = ?", c.Param("userId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	theme, err := GetOrCreate(t.db, user.ID)
	if err != nil {
		log.Printf("theme by user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load theme"})
		return
	}

	c.JSON(http.StatusOK, theme)
}

func (t *ThemeModule) getOwn(c *gin.Context) {
	current := auth.CurrentUser(c)

	theme, err := GetOrCreate(t.db, current.ID)
	if err != nil {
		log.Printf("get theme: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load theme"})
		return
	}

	c.JSON(http.StatusOK, theme)
}

type updateThemeRequest struct {
	PrimaryColor    *string `json:"primaryColor" binding:"omitempty,hexcolor"`
	BackgroundColor *string `json:"backgroundColor" binding:"omitempty,hexcolor"`
	ButtonStyle     *string `json:"buttonStyle" binding:"omitempty,oneof=rounded square pill"`
	FontFamily      *string `json:"fontFamily"`
	ShowAnimations  *bool   `json:"showAnimations"`
}

func (t *ThemeModule) updateOwn(c *gin.Context) {
	current := auth.CurrentUser(c)

	var req updateThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	theme, err := GetOrCreate(t.db, current.ID)
	if err != nil {
		log.Printf("update theme: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update theme"})
		return
	}

	if req.PrimaryColor != nil {
		theme.PrimaryColor = *req.PrimaryColor
	}
	if req.BackgroundColor != nil {
		theme.BackgroundColor = *req.BackgroundColor
	}
	if req.ButtonStyle != nil {
		theme.ButtonStyle = *req.ButtonStyle
	}
	if req.FontFamily != nil {
		theme.FontFamily = *req.FontFamily
	}
	if req.ShowAnimations != nil {
		theme.ShowAnimations = *req.ShowAnimations
	}

	if err := t.db.Save(theme).Error; err != nil {
		log.Printf("update theme: save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update theme"})
		return
	}

	c.JSON(http.StatusOK, theme)
}

func (t *ThemeModule) removeOwn(c *gin.Context) {
	current := auth.CurrentUser(c)

	result := t.db.Where("user_id = ?", current.ID).Delete(&models.Theme{})
	if result.Error != nil {
		log.Printf("delete theme: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete theme"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "theme not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
