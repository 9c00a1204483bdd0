package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"game-feedback-system/handlers"
	"game-feedback-system/middleware"
	"game-feedback-system/models"
	"game-feedback-system/services"
	"game-feedback-system/utils"
	"game-feedback-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorEnvelope,
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	serviceToken := os.Getenv("FEEDBACK_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("❌ FEEDBACK_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}
	app.Use(middleware.GatewayAuthMiddleware(serviceToken))

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.GameSession{},
		&models.Feedback{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// R2 is optional: without it avatars stay on their origin hosts
	if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		log.Println("✅ R2 avatar mirroring enabled")
	} else {
		log.Println("⚠️  CLOUDFLARE_ACCOUNT_ID not set — avatar mirroring disabled")
	}

	userJWTSecret := os.Getenv("USER_JWT_SECRET")
	if userJWTSecret == "" {
		log.Fatal("USER_JWT_SECRET environment variable not set")
	}
	userAuth := middleware.UserAuthMiddleware([]byte(userJWTSecret))

	feedbackService := services.NewFeedbackService(db)
	sessionService := services.NewSessionService(db)
	userService := services.NewUserService(db)

	// --- CONFIGURE profile service sync ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	profileClient := services.NewProfileServiceClient(profileServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker := workers.NewUserSyncWorker(db, profileClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker.Start(ctx)
	feedbackService.StartStatsScheduler()

	handlers.SetupFeedbackRoutes(app, feedbackService, userAuth)
	handlers.SetupSessionRoutes(app, sessionService, userAuth)
	handlers.SetupUserRoutes(app, userService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ User Sync Worker running")
	log.Println("✅ Stats scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
