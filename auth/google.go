package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"findlink/common"
	"findlink/models"
)

const oauthStateKey = "oauth_state"

func newGoogleOAuthConfig(cfg *common.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleCallbackURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

type googleProfile struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Picture     string `json:"picture"`
}

func (a *AuthModule) googleRedirect(c *gin.Context) {
	state, err := generateToken()
	if err != nil {
		a.redirectError(c, "failed to start google sign-in")
		return
	}

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		a.redirectError(c, "failed to start google sign-in")
		return
	}

	c.Redirect(http.StatusFound, a.google.AuthCodeURL(state))
}

func (a *AuthModule) googleCallback(c *gin.Context) {
	session := sessions.Default(c)
	expectedState, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	session.Save()

	if expectedState == "" || c.Query("state") != expectedState {
		a.redirectError(c, "invalid oauth state")
		return
	}

	code := c.Query("code")
	if code == "" {
		a.redirectError(c, "authorization code missing")
		return
	}

	token, err := a.google.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Printf("google callback: code exchange failed: %v", err)
		a.redirectError(c, "google sign-in failed")
		return
	}

	profile, err := a.fetchGoogleProfile(c, token)
	if err != nil {
		log.Printf("google callback: userinfo fetch failed: %v", err)
		a.redirectError(c, "google sign-in failed")
		return
	}

	user, err := a.resolveOrCreate(profile)
	if err != nil {
		log.Printf("google callback: account resolution failed: %v", err)
		a.redirectError(c, "google sign-in failed")
		return
	}

	pair, err := a.tokens.IssueTokens(user)
	if err != nil {
		log.Printf("google callback: token issue failed: %v", err)
		a.redirectError(c, "google sign-in failed")
		return
	}

	query := url.Values{}
	query.Set("access_token", pair.AccessToken)
	query.Set("refresh_token", pair.RefreshToken)
	c.Redirect(http.StatusFound, a.frontendURL+"/auth/callback?"+query.Encode())
}

func (a *AuthModule) fetchGoogleProfile(c *gin.Context, token *oauth2.Token) (*googleProfile, error) {
	client := a.google.Client(c.Request.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, errors.New("google profile has no email")
	}

	return &profile, nil
}

// resolveOrCreate maps an external Google identity onto a local account,
// creating one keyed on the email when none exists. Idempotent on email.
func (a *AuthModule) resolveOrCreate(profile *googleProfile) (*models.User, error) {
	var user models.User
	err := a.db.Where("email = ?", profile.Email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username, err := a.uniqueUsername(usernameFromEmail(profile.Email))
	if err != nil {
		return nil, err
	}

	// The account only ever authenticates through Google, so it gets a
	// random password nobody knows.
	randomSecret, err := generateToken()
	if err != nil {
		return nil, err
	}
	passwordHash, err := HashPassword(randomSecret)
	if err != nil {
		return nil, err
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = profile.Email
	}

	user = models.User{
		Username:     username,
		DisplayName:  displayName,
		Email:        profile.Email,
		PasswordHash: passwordHash,
		Bio:          "Signed up with Google",
		AvatarURL:    profile.Picture,
		IsPublic:     true,
	}

	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func usernameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	username := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, local)
	username = strings.ToLower(username)

	if len(username) < 3 {
		username = "user_" + username
	}
	return username
}

// uniqueUsername appends a numeric suffix until the derived username no
// longer collides with an existing account.
func (a *AuthModule) uniqueUsername(base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func (a *AuthModule) redirectError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, a.frontendURL+"/auth/error?message="+url.QueryEscape(message))
}
