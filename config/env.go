package config

import (
	"os"

	"go.uber.org/zap"
)

// GetEnv returns the value of an environment variable, empty when unset.
// godotenv is loaded once in main before any lookups happen.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvOrDefault returns the environment value or a logged fallback.
func GetEnvOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		if Logger != nil {
			Logger.Warn("Environment variable not set, using default",
				zap.String("key", key),
				zap.String("default", fallback),
			)
		}
		return fallback
	}
	return value
}
