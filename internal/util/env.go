package util

import "os"

// GetEnv returns the environment variable or a fallback, mirroring the
// lookup helper client packages use for TLS/CA file paths.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
