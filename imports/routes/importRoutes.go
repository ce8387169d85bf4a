package routes

import (
	"case-management-backend/imports/controllers"
	"case-management-backend/imports/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func ImportRouterInit(
	app *fiber.App,
	batchRepository repositories.ImportBatchRepository,
	queueClient *asynq.Client,
	redisClient *redis.Client,
) {
	importController := &controllers.ImportController{
		BatchRepo:   batchRepository,
		QueueClient: queueClient,
		RedisClient: redisClient,
	}

	importRoutes := app.Group("/imports")
	importRoutes.Post("/csv", importController.UploadCsvImportController)
	importRoutes.Get("/batches", importController.GetFilteredImportBatchesController)
	importRoutes.Get("/batches/:id", importController.GetImportBatchByIDController)
}
