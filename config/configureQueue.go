package config

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// ImportQueueConcurrency bounds how many import jobs run at once.
	ImportQueueConcurrency = 2

	// ImportMaxRetry is how many attempts the queue gives a failing import job.
	ImportMaxRetry = 3

	// importRetryBaseDelay is the first retry delay; later retries double it.
	importRetryBaseDelay = 2000 * time.Millisecond
)

// AsynqRedisOpt builds the redis connection options shared by the asynq
// client and server.
func AsynqRedisOpt() asynq.RedisClientOpt {
	redisAddr := GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	return asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
	}
}

// NewQueueClient creates the asynq client used to enqueue import jobs.
func NewQueueClient() *asynq.Client {
	return asynq.NewClient(AsynqRedisOpt())
}

// NewQueueServer creates the asynq server that executes import jobs.
// Retry and backoff live here: the workers themselves never re-schedule.
func NewQueueServer() *asynq.Server {
	return asynq.NewServer(
		AsynqRedisOpt(),
		asynq.Config{
			Concurrency: ImportQueueConcurrency,
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				// Exponential backoff: 2s, 4s, 8s, ...
				return importRetryBaseDelay << uint(n)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				if Logger != nil {
					Logger.Error("Queue task failed",
						zap.String("type", task.Type()),
						zap.Error(err),
					)
				}
			}),
		},
	)
}
