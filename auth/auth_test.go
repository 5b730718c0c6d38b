package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"findlink/common"
	"findlink/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Theme{}, &models.Link{}, &models.UserCategory{}))
	return db
}

func testConfig() *common.Config {
	return &common.Config{
		JWTSecret:         "access-secret-for-tests",
		JWTRefreshSecret:  "refresh-secret-for-tests",
		JWTExpiration:     "7d",
		JWTRefreshExpires: "30d",
		FrontendURL:       "http://localhost:3000",
	}
}

func setupTestRouter(authModule *AuthModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	authModule.RegisterRoutes(router)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerBody(username, email string) map[string]interface{} {
	return map[string]interface{}{
		"username":    username,
		"displayName": "Test User",
		"email":       email,
		"password":    "secret123",
	}
}

func decodeTokenResponse(t *testing.T, w *httptest.ResponseRecorder) tokenResponse {
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegister_Success(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	w := postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeTokenResponse(t, w)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "johndoe", resp.User.Username)

	// The embedded subject resolves back to the created account.
	claims, err := authModule.Tokens().VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", claims.Subject).Error)
	assert.Equal(t, "john@example.com", user.Email)
	assert.True(t, user.IsPublic)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestRegister_ConflictOnUsernameOrEmail(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	w := postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// Same username, different email
	w = postJSON(router, "/api/auth/register", registerBody("johndoe", "other@example.com"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Same email, different username
	w = postJSON(router, "/api/auth/register", registerBody("janedoe", "john@example.com"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_RejectsBadUsername(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	w := postJSON(router, "/api/auth/register", registerBody("john doe!", "john@example.com"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/register", registerBody("jo", "john@example.com"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Success(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil)

	w := postJSON(router, "/api/auth/login", map[string]string{
		"email":    "john@example.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeTokenResponse(t, w)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "johndoe", resp.User.Username)
}

func TestLogin_GenericUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil)

	// Wrong password and unknown email must be indistinguishable.
	wrongPassword := postJSON(router, "/api/auth/login", map[string]string{
		"email":    "john@example.com",
		"password": "wrong-password",
	}, nil)
	unknownEmail := postJSON(router, "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "secret123",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestRefresh_IssuesFreshPair(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	w := postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil)
	registered := decodeTokenResponse(t, w)

	w = postJSON(router, "/api/auth/refresh", map[string]string{
		"refreshToken": registered.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	refreshed := decodeTokenResponse(t, w)
	claims, err := authModule.Tokens().VerifyAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)

	// Refresh tokens are not single-use: the same token works again.
	w = postJSON(router, "/api/auth/refresh", map[string]string{
		"refreshToken": registered.RefreshToken,
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefresh_Unauthorized(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	// Missing token
	w := postJSON(router, "/api/auth/refresh", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token
	w = postJSON(router, "/api/auth/refresh", map[string]string{"refreshToken": "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Access token offered as a refresh token
	reg := decodeTokenResponse(t, postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil))
	w = postJSON(router, "/api/auth/refresh", map[string]string{"refreshToken": reg.AccessToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_SubjectMustStillExist(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	reg := decodeTokenResponse(t, postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil))

	require.NoError(t, db.Delete(&models.User{}, "id = ?", reg.User.ID).Error)

	w := postJSON(router, "/api/auth/refresh", map[string]string{"refreshToken": reg.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	reg := decodeTokenResponse(t, postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil))

	w := postJSON(router, "/api/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + reg.AccessToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "message")

	// Logging out twice with the same token still succeeds; there is no
	// server-side revocation.
	w = postJSON(router, "/api/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + reg.AccessToken,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMe_RequiresBearerToken(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	req, _ := http.NewRequest("GET", "/api/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	reg := decodeTokenResponse(t, postJSON(router, "/api/auth/register", registerBody("johndoe", "john@example.com"), nil))

	req, _ = http.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "johndoe")
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestResolveOrCreate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())

	profile := &googleProfile{
		Email:       "jane.doe@example.com",
		DisplayName: "Jane Doe",
		Picture:     "https://example.com/jane.jpg",
	}

	first, err := authModule.resolveOrCreate(profile)
	require.NoError(t, err)
	assert.Equal(t, "jane_doe", first.Username)
	assert.Equal(t, "Jane Doe", first.DisplayName)

	second, err := authModule.resolveOrCreate(profile)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.User{}).Where("email = ?", profile.Email).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveOrCreate_DisambiguatesUsernameCollision(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())

	require.NoError(t, db.Create(&models.User{
		Username:     "jane_doe",
		DisplayName:  "Existing Jane",
		Email:        "existing@example.com",
		PasswordHash: "x",
	}).Error)

	user, err := authModule.resolveOrCreate(&googleProfile{Email: "jane.doe@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane_doe1", user.Username)
}

func TestUsernameFromEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"john@example.com", "john"},
		{"Jane.Doe@example.com", "jane_doe"},
		{"a+b-c@example.com", "a_b_c"},
		{"ab@example.com", "user_ab"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, usernameFromEmail(tt.email))
		})
	}
}

func TestGoogleRedirect_SendsStateToGoogle(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.GoogleClientID = "client-id"
	cfg.GoogleClientSecret = "client-secret"
	authModule := NewAuthModule(db, cfg)
	router := setupTestRouter(authModule)

	req, _ := http.NewRequest("GET", "/api/auth/google", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "state=")
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
}

func TestGoogleCallback_RejectsBadState(t *testing.T) {
	db := setupTestDB(t)
	authModule := NewAuthModule(db, testConfig())
	router := setupTestRouter(authModule)

	req, _ := http.NewRequest("GET", "/api/auth/google/callback?state=forged&code=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/auth/error")
}
