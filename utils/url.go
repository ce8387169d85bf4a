package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetDownloadURL generates a download URL based on the environment (http for development, https for production).
func GetDownloadURL(c *fiber.Ctx, filePath string) string {
	env := os.Getenv("APP_ENV")
	filePath = strings.TrimPrefix(filePath, "/")

	if env == "production" {
		return fmt.Sprintf("https://%s/%s", c.Hostname(), filePath)
	}
	// Default to "http" for development
	return fmt.Sprintf("http://%s/%s", c.Hostname(), filePath)
}

// GetBaseDownloadURL builds a download link from the configured base URL,
// for contexts (like queue workers) with no request in flight.
func GetBaseDownloadURL(baseURL, filePath string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), strings.TrimPrefix(filePath, "/"))
}
