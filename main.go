// main.go
package main

import (
	"log"
	"os"
	"time"

	"kandibot/database"
	"kandibot/fusionbrain"
	"kandibot/handlers"
	"kandibot/handlers/admin"
	"kandibot/middleware"
	"kandibot/platform"
	"kandibot/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()

	// Load content files (bootstrapped with defaults on first run)
	log.Println("Loading content files...")
	catalog, err := services.LoadCatalog(services.DataDirectory)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	shopItems, err := services.LoadShopItems(services.DataDirectory)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	questions, err := services.LoadQuestions(services.DataDirectory)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// Wire services
	db := database.GetDB()
	store := services.NewRecordStore(db)
	progression := services.NewProgression(store, catalog)
	quizzes := services.NewQuizRegistry(questions, progression)

	platformClient := platform.NewClient(
		getEnv("PLATFORM_API_URL", "https://chat.example.com"),
		os.Getenv("PLATFORM_TOKEN"),
	)

	shop := services.NewShop(db, shopItems, store, progression, platformClient)

	images := fusionbrain.NewClient(fusionbrain.Config{
		BaseURL: getEnv("FUSIONBRAIN_URL", fusionbrain.DefaultBaseURL),
		Key:     os.Getenv("FUSIONBRAIN_KEY"),
		Secret:  os.Getenv("FUSIONBRAIN_SECRET"),
	})

	handlers.InitBot(&handlers.Bot{
		Notifier:    platformClient,
		Roles:       platformClient,
		Store:       store,
		Catalog:     catalog,
		Progression: progression,
		Shop:        shop,
		Quizzes:     quizzes,
		Images:      images,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.FiberRateLimitMiddleware())

	// Platform event intake
	webhookGroup := app.Group("/webhook")
	webhookGroup.Use(middleware.PlatformAuthMiddleware)
	webhookGroup.Post("/event", handlers.HandleWebhookEvent)

	app.Get("/gateway", middleware.PlatformAuthMiddleware, handlers.GatewayUpgrade, handlers.GatewayHandler)

	// Admin routes
	api := app.Group("/api")
	adminGroup := api.Group("/admin")
	adminGroup.Post("/login", admin.Login)
	adminGroup.Post("/logout", admin.Logout)

	// Protected admin routes
	adminProtected := adminGroup.Group("")
	adminProtected.Use(middleware.AdminAuthMiddleware)
	adminProtected.Get("/verify", admin.VerifyToken)
	adminProtected.Get("/records", admin.GetRecords)
	adminProtected.Get("/records/:id", admin.GetRecord)
	adminProtected.Get("/stats", admin.GetStats)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	// Start HTTP server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🏆 Achievement catalog: %d definitions", catalog.Len())
	log.Printf("🛍️ Shop inventory: %d items", len(shop.Items()))
	log.Printf("🧠 Question bank: %d questions", len(questions))
	log.Printf("🌐 Gateway available at ws://localhost:%s/gateway", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	if os.Getenv("PLATFORM_TOKEN") == "" {
		log.Fatal("FATAL: PLATFORM_TOKEN environment variable must be set")
	}

	if os.Getenv("FUSIONBRAIN_KEY") == "" || os.Getenv("FUSIONBRAIN_SECRET") == "" {
		log.Println("WARNING: FUSIONBRAIN_KEY/FUSIONBRAIN_SECRET not set, image generation will fail")
	}

	if os.Getenv("WEBHOOK_SECRET") == "" {
		log.Println("WARNING: WEBHOOK_SECRET not set, using the built-in development secret")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Println("WARNING: JWT_SECRET not set, admin endpoints are unusable")
	}
}

// Helper functions

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
