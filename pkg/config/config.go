package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment            string
	ServerPort             int
	RedisURL               string
	DatabaseHost           string
	DatabasePort           int
	DatabaseUser           string
	DatabasePassword       string
	DatabaseName           string
	DatabaseSSLMode        string
	JWTSecret              string
	TokenTTL               time.Duration
	LogLevel               string
	CORSAllowedOrigins     []string
	AvatarDir              string
	PublicBaseURL          string
	LeaderboardSize        int
	LeaderboardInterval    time.Duration
	ApprovalPollSeconds    int
	DefaultPointsPerKg     float64
	DefaultAgentApproval   bool
	LoginRateLimitPerMin   int
	GeneralRateLimitPerMin int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTLMin, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	leaderboardSize, err := strconv.Atoi(getEnv("LEADERBOARD_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_SIZE: %w", err)
	}

	leaderboardIntervalSec, err := strconv.Atoi(getEnv("LEADERBOARD_REFRESH_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_REFRESH_SECONDS: %w", err)
	}

	pollSeconds, err := strconv.Atoi(getEnv("APPROVAL_POLL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPROVAL_POLL_SECONDS: %w", err)
	}

	pointsPerKg, err := strconv.ParseFloat(getEnv("DEFAULT_POINTS_PER_KG", "1"), 64)
	if err != nil || pointsPerKg <= 0 {
		return nil, fmt.Errorf("invalid DEFAULT_POINTS_PER_KG")
	}

	loginLimit, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT_PER_MINUTE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	generalLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	return &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		ServerPort:       port,
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseHost:     getEnv("DB_HOST", "localhost"),
		DatabasePort:     dbPort,
		DatabaseUser:     getEnv("DB_USER", "pci"),
		DatabasePassword: getEnv("DB_PASSWORD", "dev"),
		DatabaseName:     getEnv("DB_NAME", "pci"),
		DatabaseSSLMode:  getEnv("DB_SSLMODE", "disable"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenTTL:         time.Duration(tokenTTLMin) * time.Minute,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		AvatarDir:              getEnv("AVATAR_DIR", "./data/avatars"),
		PublicBaseURL:          getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LeaderboardSize:        leaderboardSize,
		LeaderboardInterval:    time.Duration(leaderboardIntervalSec) * time.Second,
		ApprovalPollSeconds:    pollSeconds,
		DefaultPointsPerKg:     pointsPerKg,
		DefaultAgentApproval:   getEnv("DEFAULT_AGENT_APPROVAL", "false") == "true",
		LoginRateLimitPerMin:   loginLimit,
		GeneralRateLimitPerMin: generalLimit,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
