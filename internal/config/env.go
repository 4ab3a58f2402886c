package config

import (
	"os"
	"strings"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		logging.DebugLog("Environment configuration: no .env file found, using process environment")
		return
	}
	logging.InfoLog("Environment configuration: .env file loaded")
}

// MustGetEnv returns the value of the environment variable or panics if it's not set.
func MustGetEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		logging.ErrorLog("Environment configuration failed: missing required variable %s", key)
		panic("config: missing required environment variable: " + key)
	}
	return v
}

// GetEnv returns the value of the environment variable or a default if it's not set.
func GetEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	logging.DebugLog("Environment variable %s not set, using fallback", key)
	return fallback
}

// GetList splits a comma separated variable, dropping blank entries.
func GetList(key, fallback string) []string {
	raw := GetEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MustParseDuration retrieves a duration from env or uses fallback, panics if invalid.
func MustParseDuration(key, fallback string) time.Duration {
	val := GetEnv(key, fallback)

	d, err := time.ParseDuration(val)
	if err != nil {
		logging.ErrorLog("Duration parsing failed: %s = %s, error: %v", key, val, err)
		panic("config: invalid duration in " + key + ": " + err.Error())
	}

	logging.DebugLog("Duration parsed: %s = %v", key, d)
	return d
}
