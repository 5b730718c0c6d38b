package auth

import (
	"errors"
	"log"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"findlink/common"
	"findlink/models"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type AuthModule struct {
	db          *gorm.DB
	tokens      *TokenService
	google      *oauth2.Config
	frontendURL string
}

func NewAuthModule(db *gorm.DB, cfg *common.Config) *AuthModule {
	return &AuthModule{
		db:          db,
		tokens:      NewTokenService(cfg),
		google:      newGoogleOAuthConfig(cfg),
		frontendURL: cfg.FrontendURL,
	}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", a.register)
		authGroup.POST("/login", a.login)
		authGroup.POST("/refresh", a.refresh)
		authGroup.GET("/google", a.googleRedirect)
		authGroup.GET("/google/callback", a.googleCallback)

		authGroup.POST("/logout", a.RequireAuth, a.logout)
		authGroup.GET("/me", a.RequireAuth, a.me)
	}
}

// Tokens exposes the token service so tests and other modules can mint
// credentials without going through the HTTP handlers.
func (a *AuthModule) Tokens() *TokenService {
	return a.tokens
}

type registerRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=30"`
	DisplayName string `json:"displayName" binding:"required,min=2,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Bio         string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   string `json:"avatarUrl" binding:"omitempty,url"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
}

type tokenResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
	TokenType    string      `json:"tokenType"`
	User         userSummary `json:"user"`
}

func newTokenResponse(pair *TokenPair, user *models.User) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    "Bearer",
		User: userSummary{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			AvatarURL:   user.AvatarURL,
		},
	}
}

func (a *AuthModule) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !usernameRe.MatchString(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username may only contain letters, numbers and underscores"})
		return
	}

	var existing models.User
	err := a.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already in use"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("register: hashing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
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

	if err := a.db.Create(&user).Error; err != nil {
		log.Printf("register: create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	pair, err := a.tokens.IssueTokens(&user)
	if err != nil {
		log.Printf("register: token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, newTokenResponse(pair, &user))
}

func (a *AuthModule) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Unknown email and wrong password answer identically so callers
	// cannot enumerate accounts.
	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	pair, err := a.tokens.IssueTokens(&user)
	if err != nil {
		log.Printf("login: token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair, &user))
}

func (a *AuthModule) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token required"})
		return
	}

	claims, err := a.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	var user models.User
	if err := a.db.First(&user, "id = ?", claims.Subject).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	pair, err := a.tokens.IssueTokens(&user)
	if err != nil {
		log.Printf("refresh: token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh tokens"})
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair, &user))
}

// logout has no server-side session to tear down, so it always succeeds.
func (a *AuthModule) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func (a *AuthModule) me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, user)
}
