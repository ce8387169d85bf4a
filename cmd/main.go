package main

import (
	"context"

	config "case-management-backend/config"
	"case-management-backend/middleware"
	"case-management-backend/utils"

	import_repositories "case-management-backend/imports/repositories"
	import_routes "case-management-backend/imports/routes"
	import_services "case-management-backend/imports/services"
	import_workers "case-management-backend/imports/workers"

	"case-management-backend/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize Zap logger
	config.InitLogger()

	// Load environment variables
	err := godotenv.Load(".env")
	if err != nil {
		config.Logger.Warn("No .env file loaded, relying on process environment", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // bulk CSV uploads
	})

	// Apply CORS middleware from middleware package
	middleware.InitCors(app)

	// Initialize database and configs
	db := config.ConfigureDatabase()
	port := config.GetEnvOrDefault("PORT", "8080")
	uploadDir := config.GetEnvOrDefault("UPLOAD_DIR", "./uploads")
	ctx := context.Background()

	redisClient := config.InitRedisServer(ctx)

	queueClient := config.NewQueueClient()
	defer queueClient.Close()

	// Initialize the mailer for import error reports
	utils.InitializeMailer()

	// ------ WebSocket hub for live import progress ------
	wsHub := websocket.NewHub()
	go wsHub.Run()
	notifier := websocket.NewImportNotifier(wsHub)

	// Serve static files
	app.Static("/public", "./public")

	// Repositories
	batchRepo := import_repositories.NewImportBatchRepository(db)
	courtRepo := import_repositories.NewCourtRepository(db)
	caseTypeRepo := import_repositories.NewCaseTypeRepository(db)
	caseRepo := import_repositories.NewCaseRepository(db)

	// Services
	importService := import_services.NewImportService(batchRepo, courtRepo, caseTypeRepo, caseRepo, config.Logger)

	// Queue worker pool
	importWorker := import_workers.NewImportWorker(importService, batchRepo, notifier, config.Logger)
	queueServer := config.NewQueueServer()
	mux := asynq.NewServeMux()
	importWorker.Register(mux)
	go func() {
		if err := queueServer.Run(mux); err != nil {
			config.Logger.Fatal("Queue server stopped", zap.Error(err))
		}
	}()

	// Routes
	import_routes.ImportRouterInit(app, batchRepo, queueClient, redisClient)

	// WebSocket route for import progress subscriptions
	wsHandler := websocket.NewWsHandler(wsHub)
	app.Get("/ws", wsHandler.HandleWebSocket)
	config.Logger.Info("WebSocket endpoint registered at /ws")

	// Background cleanup tasks
	go utils.RunScheduledCleanup(uploadDir, redisClient)

	// Start the application
	config.Logger.Info("Server starting", zap.String("port", port))
	config.Logger.Fatal("Server failed", zap.String("port", port), zap.Error(app.Listen(":"+port)))
}
