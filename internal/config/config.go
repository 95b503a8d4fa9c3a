package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

var (
	Address           string
	LogLevel          slog.Leveler
	SessionFile       string
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	DatabaseFile      string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Socks5Proxy       string
	StaticDir         string
)

// fileConfig mirrors the env keys for the optional YAML config file.
// Environment variables always win over file values.
type fileConfig struct {
	Address           string `yaml:"address"`
	LogLevel          string `yaml:"log_level"`
	SessionFile       string `yaml:"session_file"`
	RedisAddress      string `yaml:"redis_address"`
	RedisPassword     string `yaml:"redis_password"`
	RedisDB           int    `yaml:"redis_db"`
	DatabaseFile      string `yaml:"database_file"`
	RateLimitRequests int    `yaml:"ratelimit_requests"`
	RateLimitWindow   string `yaml:"ratelimit_window"`
	Socks5Proxy       string `yaml:"socks5_proxy"`
	StaticDir         string `yaml:"static_dir"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded",
			"error", err.Error())
	}

	file := loadFileConfig(os.Getenv("CONFIG_FILE"))

	Address = stringValue("ADDRESS", file.Address, ":8080")
	LogLevel = parseLogLevel(stringValue("LOG_LEVEL", file.LogLevel, "INFO"))
	SessionFile = stringValue("SESSION_FILE", file.SessionFile, "twitter_session.json")
	RedisAddress = stringValue("REDIS_ADDRESS", file.RedisAddress, "")
	RedisPassword = stringValue("REDIS_PASSWORD", file.RedisPassword, "")
	RedisDB = intValue("REDIS_DB", file.RedisDB, 0)
	DatabaseFile = stringValue("DATABASE_FILE", file.DatabaseFile, "archive.db")
	RateLimitRequests = intValue("RATELIMIT_REQUESTS", file.RateLimitRequests, 30)
	RateLimitWindow = durationValue("RATELIMIT_WINDOW", file.RateLimitWindow, time.Minute)
	Socks5Proxy = stringValue("SOCKS5_PROXY", file.Socks5Proxy, "")
	StaticDir = stringValue("STATIC_DIR", file.StaticDir, "static")
}

func loadFileConfig(path string) fileConfig {
	var file fileConfig
	if path == "" {
		return file
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read config file",
			"file", path,
			"error", err.Error())
		os.Exit(1)
	}

	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Error("Failed to parse config file",
			"file", path,
			"error", err.Error())
		os.Exit(1)
	}

	return file
}

func stringValue(key, fileValue, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

func intValue(key string, fileValue, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	if fileValue != 0 {
		return fileValue
	}
	return fallback
}

func durationValue(key, fileValue string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	if value, err := time.ParseDuration(fileValue); err == nil && value > 0 {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Leveler {
	levels := map[string]slog.Level{
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"WARN":    slog.LevelWarn,
	}

	l, ok := levels[level]
	if !ok {
		l = slog.LevelInfo
	}

	return l
}
