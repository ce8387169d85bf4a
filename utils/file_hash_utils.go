package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strings"
)

// GenerateFileChecksum computes the SHA-256 content hash of a file. The hash
// identifies an uploaded file across runs: the same bytes always produce the
// same digest, any single-byte change produces a different one.
func GenerateFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// CleanStringForFilename cleans a string for safe use in filenames
func CleanStringForFilename(input string) string {
	// Remove or replace problematic characters
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-':
			return '_'
		case r == '.':
			return '.'
		default:
			return -1 // remove
		}
	}, input)

	// Remove multiple consecutive underscores
	clean = regexp.MustCompile(`_+`).ReplaceAllString(clean, "_")
	// Trim underscores from start and end
	clean = strings.Trim(clean, "_")

	if clean == "" {
		clean = "file"
	}

	// Limit length
	if len(clean) > 100 {
		clean = clean[:100]
	}

	return clean
}
