package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"case-management-backend/config"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Retry configuration
const maxRetries = 3
const retryDelay = 2 * time.Minute // 2 minutes between retries

// ImportChecksumKeyPattern matches the redis keys used for duplicate-file
// detection on upload. They carry their own TTL; the sweep below is a
// safety net for keys written before a TTL was set.
const ImportChecksumKeyPattern = "import:checksum:*"

// CleanupExpiredFile removes a file older than the TTL
func CleanupExpiredFile(filePath string, ttl time.Duration) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error checking file: %v", err)
	}

	if time.Since(info.ModTime()) > ttl {
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("error deleting expired file: %v", err)
		}
		config.Logger.Info("Expired file deleted", zap.String("path", filePath))
	}
	return nil
}

// CleanupStaleChecksumKeys deletes import checksum keys that were stored
// without an expiry.
func CleanupStaleChecksumKeys(ctx context.Context, redisClient *redis.Client) error {
	iter := redisClient.Scan(ctx, 0, ImportChecksumKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := redisClient.TTL(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("error reading TTL for %s: %v", key, err)
		}
		if ttl == -1 { // no expiry set
			if err := redisClient.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("error deleting stale checksum key %s: %v", key, err)
			}
		}
	}
	return iter.Err()
}

// CleanupAllExpired removes expired temp upload files, stale error reports
// and stale redis checksum keys.
func CleanupAllExpired(fileTTL time.Duration, uploadDir string, redisClient *redis.Client) error {
	for _, dir := range []string{filepath.Join(uploadDir, "tmp"), "./public/files"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("error reading directory %s: %v", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := CleanupExpiredFile(filepath.Join(dir, entry.Name()), fileTTL); err != nil {
				config.Logger.Warn("Error cleaning up file", zap.Error(err))
			}
		}
	}

	return CleanupStaleChecksumKeys(context.Background(), redisClient)
}

// RunScheduledCleanup runs cleanup tasks daily at 1 AM with retries and logs failures
func RunScheduledCleanup(uploadDir string, redisClient *redis.Client) {
	c := cron.New()

	c.AddFunc("0 1 * * *", func() {
		config.Logger.Info("Running scheduled cleanup task")

		var retries int
		var cleanupSuccess bool

		for retries < maxRetries {
			err := CleanupAllExpired(24*time.Hour, uploadDir, redisClient)
			if err == nil {
				cleanupSuccess = true
				break
			}
			config.Logger.Warn("Cleanup attempt failed",
				zap.Int("attempt", retries+1),
				zap.Error(err),
			)
			retries++
			time.Sleep(retryDelay)
		}

		if !cleanupSuccess {
			config.Logger.Error("Cleanup task failed after retries", zap.Int("retries", retries))
		}
	})

	c.Start()

	// Keep the goroutine alive so cron jobs keep executing
	select {}
}
