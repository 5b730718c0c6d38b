package user

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"findlink/auth"
	"findlink/models"
	"findlink/theme"
)

type UserModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewUserModule(db *gorm.DB, authModule *auth.AuthModule) *UserModule {
	return &UserModule{db: db, auth: authModule}
}

func (u *UserModule) RegisterRoutes(router *gin.Engine) {
	userGroup := router.Group("/api/users")
	{
		userGroup.POST("", u.create)
		userGroup.GET("", u.list)
		userGroup.GET("/:id", u.get)
		userGroup.GET("/username/:username", u.getByUsername)
		userGroup.GET("/:id/profile", u.publicProfile)
		userGroup.GET("/:id/links", u.activeLinks)
		userGroup.GET("/:id/stats", u.stats)
		userGroup.POST("/:id/increment-views", u.incrementViews)

		userGroup.PATCH("/:id", u.auth.RequireAuth, u.update)
		userGroup.DELETE("/:id", u.auth.RequireAuth, u.remove)
	}
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type createUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=30"`
	DisplayName string `json:"displayName" binding:"required,min=2,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Bio         string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   string `json:"avatarUrl" binding:"omitempty,url"`
}

// create makes an account without issuing tokens. Same conflict rule
// as registration: username and email share one combined check.
func (u *UserModule) create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !usernameRe.MatchString(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username may only contain letters, numbers and underscores"})
		return
	}

	var existing models.User
	err := u.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already in use"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("create user: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("create user: hashing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := models.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Bio:          req.Bio,
		AvatarURL:    req.AvatarURL,
		IsPublic:     true,
	}

	if err := u.db.Create(&user).Error; err != nil {
		log.Printf("create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (u *UserModule) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	search := c.Query("search")

	query := u.db.Model(&models.User{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("username LIKE ? OR display_name LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("list users: count failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; err != nil {
		log.Printf("list users: query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (u *UserModule) get(c *gin.Context) {
	var user models.User
	err := u.db.Preload("Theme").Preload("Links").Preload("Categories").
		First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserModule) getByUsername(c *gin.Context) {
	var user models.User
	err := u.db.Preload("Theme").Preload("Links").Preload("Categories").
		Where("username = ?", c.Param("username")).First(&user).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	DisplayName *string `json:"displayName" binding:"omitempty,min=2,max=50"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl"`
	IsPublic    *bool   `json:"isPublic"`
	Password    *string `json:"password" binding:"omitempty,min=6"`
}

func (u *UserModule) update(c *gin.Context) {
	current := auth.CurrentUser(c)
	if current == nil || current.ID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Build a fresh update set instead of mutating the request value, so
	// the plaintext password never travels past this point.
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			log.Printf("update user: hashing failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := u.db.Model(current).Updates(updates).Error; err != nil {
			log.Printf("update user: save failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
	}

	var user models.User
	if err := u.db.First(&user, "id = ?", current.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserModule) remove(c *gin.Context) {
	current := auth.CurrentUser(c)
	if current == nil || current.ID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	// Deleting an account takes its theme, links and categories with it.
	if err := u.db.Select(clause.Associations).Delete(current).Error; err != nil {
		log.Printf("delete user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (u *UserModule) incrementViews(c *gin.Context) {
	var user models.User
	if err := u.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := u.db.Model(&user).
		UpdateColumn("profile_views", gorm.Expr("profile_views + 1")).Error; err != nil {
		log.Printf("increment views: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to increment views"})
		return
	}
	user.ProfileViews++

	c.JSON(http.StatusOK, user)
}

// publicProfile assembles the outward-facing page for an account. A
// private account answers exactly like a missing one, and every
// successful read counts as a view.
func (u *UserModule) publicProfile(c *gin.Context) {
	var user models.User
	err := u.db.First(&user, "id = ?", c.Param("id")).Error
	if err != nil || !user.IsPublic {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	if err := u.db.Model(&user).
		UpdateColumn("profile_views", gorm.Expr("profile_views + 1")).Error; err != nil {
		log.Printf("public profile: view increment failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	user.ProfileViews++

	userTheme, err := theme.GetOrCreate(u.db, user.ID)
	if err != nil {
		log.Printf("public profile: theme load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	var links []models.Link
	if err := u.db.Where("user_id = ? AND is_active = ?", user.ID, true).
		Order("sort_order ASC").Find(&links).Error; err != nil {
		log.Printf("public profile: links load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	var categories []models.UserCategory
	if err := u.db.Where("user_id = ? AND is_featured = ?", user.ID, true).
		Order("created_at DESC").Find(&categories).Error; err != nil {
		log.Printf("public profile: categories load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"displayName":  user.DisplayName,
		"bio":          user.Bio,
		"avatarUrl":    user.AvatarURL,
		"profileViews": user.ProfileViews,
		"createdAt":    user.CreatedAt,
		"theme":        userTheme,
		"links":        links,
		"categories":   categories,
	})
}

func (u *UserModule) activeLinks(c *gin.Context) {
	var user models.User
	if err := u.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var links []models.Link
	if err := u.db.Where("user_id = ? AND is_active = ?", user.ID, true).
		Order("sort_order ASC").Find(&links).Error; err != nil {
		log.Printf("user links: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load links"})
		return
	}

	c.JSON(http.StatusOK, links)
}

// stats aggregates simple engagement counters for an account.
func (u *UserModule) stats(c *gin.Context) {
	var user models.User
	if err := u.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var totalLinks, activeLinks int64
	var totalClicks int64
	if err := u.db.Model(&models.Link{}).Where("user_id = ?", user.ID).Count(&totalLinks).Error; err != nil {
		log.Printf("user stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	if err := u.db.Model(&models.Link{}).
		Where("user_id = ? AND is_active = ?", user.ID, true).Count(&activeLinks).Error; err != nil {
		log.Printf("user stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	row := u.db.Model(&models.Link{}).Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(clicks), 0)").Row()
	if err := row.Scan(&totalClicks); err != nil {
		log.Printf("user stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profileViews": user.ProfileViews,
		"totalLinks":   totalLinks,
		"activeLinks":  activeLinks,
		"totalClicks":  totalClicks,
	})
}
