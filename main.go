package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wager-escrow-system/handlers"
	"wager-escrow-system/middleware"
	"wager-escrow-system/models"
	"wager-escrow-system/services"
	"wager-escrow-system/utils"
	"wager-escrow-system/workers"

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

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	escrowSecret := os.Getenv("ESCROW_MASTER_SECRET")
	if escrowSecret == "" {
		log.Fatal("ESCROW_MASTER_SECRET environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Wager{},
		&models.EscrowAccount{},
		&models.AssetMirror{},
		&models.LedgerAccount{},
		&models.SettlementReceipt{},
		&models.PlayerMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureArchiveDir(); err != nil {
		log.Fatal("failed to ensure archive dir:", err)
	}

	// Receipt archive is optional — local disk fallback when R2 is unset
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set — settlement receipts archived to local disk")
	}

	ledgerService := services.NewLedgerService(db)
	wagerService := services.NewWagerService(db, ledgerService, escrowSecret)
	settlementService := services.NewSettlementService(db, ledgerService, escrowSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mirror sync workers need the external sync service
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL != "" {
		serviceToken := os.Getenv("WAGER_SERVICE_TOKEN")

		assetSyncClient := workers.NewAssetSyncClient(db)
		go workers.PollAssets(ctx, assetSyncClient, 10*time.Second)

		playerSyncWorker := workers.NewPlayerSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)
		playerSyncWorker.Start(ctx)
	} else {
		log.Println("⚠️  SYNC_SERVICE_URL not set — asset/player mirror sync disabled")
	}

	wagerService.StartEscrowAuditScheduler()

	handlers.SetupLedgerRoutes(app, ledgerService)
	handlers.SetupWagerRoutes(app, wagerService, settlementService)

	app.Static("/archive", "./archive")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Escrow audit scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
