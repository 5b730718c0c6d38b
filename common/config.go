package common

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port string

	JWTSecret         string
	JWTRefreshSecret  string
	JWTExpiration     string
	JWTRefreshExpires string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	FrontendURL        string
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		JWTExpiration:      getEnv("JWT_EXPIRATION", "7d"),
		JWTRefreshExpires:  getEnv("JWT_REFRESH_EXPIRATION", "30d"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/api/auth/google/callback"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		log.Fatal("JWT_SECRET and JWT_REFRESH_SECRET environment variables must be set")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseExpiry parses duration strings of the form "<integer><unit>" where
// unit is one of s, m, h, d or w. Malformed values fall back to def.
func ParseExpiry(value string, def time.Duration) time.Duration {
	if len(value) < 2 {
		return def
	}

	n, err := strconv.Atoi(value[:len(value)-1])
	if err != nil {
		return def
	}

	switch value[len(value)-1] {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return def
	}
}
