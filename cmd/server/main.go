package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/cartwheelhq/cartwheel/internal/config"
	"github.com/cartwheelhq/cartwheel/internal/database"
	"github.com/cartwheelhq/cartwheel/internal/handlers"
	"github.com/cartwheelhq/cartwheel/internal/middleware"
	"github.com/cartwheelhq/cartwheel/internal/services"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Event hub shared by all handlers
	events := services.NewListEventsHub()

	// Create handler with dependencies
	h := handlers.New(db, cfg, events)

	// Initialize receipt processing when S3 credentials are configured
	var receiptHandler *handlers.ReceiptHandler
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		storageService, err := services.NewStorageService(
			cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL,
		)
		if err != nil {
			log.Printf("Warning: Failed to initialize storage service: %v", err)
		} else {
			if err := storageService.EnsureBucket(context.Background()); err != nil {
				log.Printf("Warning: Failed to ensure S3 bucket exists: %v", err)
			}

			ocrService, err := services.NewOCRService(cfg.OCRLanguage)
			if err != nil {
				log.Printf("Warning: Failed to initialize OCR service: %v", err)
			} else {
				receiptHandler = handlers.NewReceiptHandler(db, cfg, storageService, ocrService, events)
				log.Println("Receipt processing service initialized")
			}
		}
	} else {
		log.Println("S3 credentials not configured, receipt processing disabled")
	}

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/me", middleware.AuthRequired(cfg), h.Me)

	// Catalog routes (authenticated)
	catalog := api.Group("/catalog", middleware.AuthRequired(cfg))
	catalog.Get("/lookup/:barcode", h.LookupBarcode)
	catalog.Get("/products", h.SearchProducts)
	catalog.Post("/products", middleware.AdminRequired(), h.CreateProduct)
	catalog.Get("/categories", h.ListCategories)

	// Shopping list routes (authenticated)
	lists := api.Group("/lists", middleware.AuthRequired(cfg))
	lists.Get("/", h.ListLists)
	lists.Post("/", h.CreateList)
	lists.Get("/:id", h.GetList)
	lists.Put("/:id", h.UpdateList)
	lists.Delete("/:id", h.DeleteList)

	// List items
	lists.Post("/:id/items", h.AddListItem)
	lists.Put("/:id/items/:itemId", h.UpdateListItem)
	lists.Delete("/:id/items/:itemId", h.DeleteListItem)
	lists.Post("/:id/items/:itemId/toggle", h.ToggleListItem)

	// Cooperative edit locks
	lists.Post("/:id/lock", h.AcquireLock)
	lists.Put("/:id/lock", h.RefreshLock)
	lists.Delete("/:id/lock", h.ReleaseLock)

	// Verification lifecycle
	lists.Post("/:id/verify/start", h.StartVerification)
	lists.Post("/:id/verify/pause", h.PauseVerification)
	lists.Post("/:id/verify/scans", h.CommitScans)
	lists.Get("/:id/verify/progress", h.GetProgress)
	lists.Post("/:id/items/:itemId/verify", h.VerifyListItem)
	lists.Post("/:id/items/:itemId/not-purchased", h.MarkNotPurchased)
	lists.Delete("/:id/items/:itemId/not-purchased", h.UndoNotPurchased)
	lists.Post("/:id/complete", h.CompleteList)

	// Live change feed
	lists.Get("/:id/events", h.SubscribeListEvents)

	// Pantry routes (authenticated)
	pantry := api.Group("/pantry", middleware.AuthRequired(cfg))
	pantry.Get("/", h.ListPantry)
	pantry.Post("/:id/adjust", h.AdjustPantryItem)

	// Receipt routes (authenticated, only if receipt handler is available)
	if receiptHandler != nil {
		receipts := api.Group("/receipts", middleware.AuthRequired(cfg))
		receipts.Post("/upload", receiptHandler.UploadReceipt)
		receipts.Get("/", receiptHandler.ListReceipts)
		receipts.Get("/:id", receiptHandler.GetReceipt)
		receipts.Post("/:id/reprocess", receiptHandler.ReprocessReceipt)
		receipts.Post("/:id/reconcile", receiptHandler.ReconcileReceipt)
		receipts.Post("/:id/apply-extras", receiptHandler.ApplyExtras)
		receipts.Delete("/:id", receiptHandler.DeleteReceipt)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
