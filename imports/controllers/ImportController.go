package controllers

import (
	"case-management-backend/imports/repositories"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type ImportController struct {
	BatchRepo   repositories.ImportBatchRepository
	QueueClient *asynq.Client
	RedisClient *redis.Client
}
