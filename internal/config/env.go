package config

import "os"

// Env reads an environment variable or returns a fallback value.
func Env(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
