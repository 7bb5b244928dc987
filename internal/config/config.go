// Package config reads osmrender settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Workers    int
	IconPaths  []string
	CacheBytes int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	ListenAddr string
	MinZoom    int
	MaxZoom    int

	LogLevel  string
	LogFormat string
}

// Load reads .env when present and builds the configuration from OSMRENDER_*
// variables. Unset or malformed values fall back to their defaults.
func Load() *Config {
	_ = godotenv.Load(".env")
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() *Config {
	return &Config{
		Workers:    getEnvAsInt("OSMRENDER_WORKERS", runtime.NumCPU()),
		IconPaths:  filepath.SplitList(getEnv("OSMRENDER_ICON_PATH", "")),
		CacheBytes: int64(getEnvAsInt("OSMRENDER_CACHE_BYTES", 64<<20)),

		RedisAddr:     getEnv("OSMRENDER_REDIS_ADDR", ""),
		RedisPassword: getEnv("OSMRENDER_REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("OSMRENDER_REDIS_DB", 0),
		RedisTTL:      getEnvAsDuration("OSMRENDER_REDIS_TTL", time.Hour),

		ListenAddr: getEnv("OSMRENDER_LISTEN_ADDR", ":8000"),
		MinZoom:    getEnvAsInt("OSMRENDER_MIN_ZOOM", 11),
		MaxZoom:    getEnvAsInt("OSMRENDER_MAX_ZOOM", 18),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// Verbose reports whether OSMRENDER_VERBOSE asks for debug logging.
func Verbose() bool {
	return getEnvAsBool("OSMRENDER_VERBOSE", false)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}
