package utils

import "os"

// GetEnvOrDefault returns the value of an environment variable or a default
// when it is unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
