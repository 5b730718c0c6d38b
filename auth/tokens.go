package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"findlink/common"
	"findlink/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims carried by both access and refresh tokens. The user id travels
// in the registered Subject field.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the access/refresh token pair. Access
// and refresh tokens use independent secrets and expiries.
type TokenService struct {
	accessSecret  string
	refreshSecret string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenService(cfg *common.Config) *TokenService {
	return &TokenService{
		accessSecret:  cfg.JWTSecret,
		refreshSecret: cfg.JWTRefreshSecret,
		accessExpiry:  common.ParseExpiry(cfg.JWTExpiration, 7*24*time.Hour),
		refreshExpiry: common.ParseExpiry(cfg.JWTRefreshExpires, 30*24*time.Hour),
	}
}

// TokenPair is the signed token material returned to clients. ExpiresIn
// reflects the access token's lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

func (s *TokenService) IssueTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := s.sign(user, s.accessSecret, s.accessExpiry)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.sign(user, s.refreshSecret, s.refreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessExpiry / time.Second),
	}, nil
}

func (s *TokenService) sign(user *models.User, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.accessSecret)
}

func (s *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.refreshSecret)
}

func (s *TokenService) verify(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
