package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Enabled reports whether the variable holds a truthy flag value.
func Enabled(key string) bool {
	switch strings.ToLower(Get(key, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
