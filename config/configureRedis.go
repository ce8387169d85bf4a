package config

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// InitRedisServer connects the shared redis client used for the upload
// checksum dedup cache and the scheduled key cleanup. The job queue keeps
// its own connection (see NewQueueClient); this one is for direct key
// access only.
func InitRedisServer(ctx context.Context) *redis.Client {
	addr := GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("[REDIS-CONNECT] Failed to connect to %s: %v", addr, err)
	}

	log.Println("[REDIS-STATUS] Redis connection established")
	return client
}
