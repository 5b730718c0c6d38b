package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"findlink/auth"
	"findlink/category"
	"findlink/common"
	"findlink/database"
	"findlink/link"
	"findlink/theme"
	"findlink/user"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := common.LoadConfig()

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := gin.Default()

	// Cookie session carries the OAuth state nonce across the Google
	// redirect round-trip.
	store := cookie.NewStore([]byte(cfg.JWTSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("findlink-session", store))

	authModule := auth.NewAuthModule(db, cfg)
	authModule.RegisterRoutes(router)

	userModule := user.NewUserModule(db, authModule)
	userModule.RegisterRoutes(router)

	linkModule := link.NewLinkModule(db, authModule)
	linkModule.RegisterRoutes(router)

	categoryModule := category.NewCategoryModule(db, authModule)
	categoryModule.RegisterRoutes(router)

	themeModule := theme.NewThemeModule(db, authModule)
	themeModule.RegisterRoutes(router)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
