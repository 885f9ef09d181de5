package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort        string        // Application port
	DBDriver       string        // Database driver: mysql, postgres or sqlite
	DBUser         string        // Database user
	DBPassword     string        // Database password
	DBHost         string        // Database host
	DBPort         string        // Database port
	DBName         string        // Database name (file path for sqlite)
	DBSSLMode      string        // Postgres sslmode
	JWTSecret      string        // Secret for storefront tokens and admin session cookies
	RedisAddr      string        // Redis server address
	RedisPass      string        // Redis password
	RedisDB        int           // Redis database number
	IsProd         bool          // Is production environment
	SessionTimeout time.Duration // Admin session inactivity timeout
	CORSOrigins    []string      // Allowed browser origins (storefront and admin apps)
	StorageDriver  string        // Image storage: s3 or local
	S3Bucket       string        // Bucket for uploaded images
	AWSRegion      string        // AWS region of the bucket
	AssetsBaseURL  string        // Public base URL for stored images
	UploadDir      string        // Directory for the local storage driver
	AdminEmail     string        // Admin account seeded by cmd/migrate
	AdminPassword  string        // Password of the seeded admin account
	RateLimits     RateLimits    // Per-bucket request windows
}

// RateLimit is a fixed request window
type RateLimit struct {
	Limit  int           // Requests allowed per window
	Window time.Duration // Window length
}

// RateLimits groups the limiter buckets
type RateLimits struct {
	Global RateLimit
	Auth   RateLimit
	Upload RateLimit
	Search RateLimit
	Order  RateLimit
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:        getEnv("APP_PORT", "3001"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         os.Getenv("DB_PORT"),
		DBName:         getEnv("DB_NAME", "storefront"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      os.Getenv("REDIS_PASS"),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		IsProd:         os.Getenv("IS_PROD") == "true",
		SessionTimeout: getEnvAsDuration("SESSION_TIMEOUT", 5*time.Minute),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3002"}),
		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		AWSRegion:      getEnv("AWS_REGION", "eu-central-1"),
		AssetsBaseURL:  getEnv("ASSETS_BASE_URL", "http://localhost:3001/uploads"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		RateLimits: RateLimits{
			Global: getEnvAsRateLimit("RATE_LIMIT_GLOBAL", RateLimit{Limit: 1000, Window: 15 * time.Minute}),
			Auth:   getEnvAsRateLimit("RATE_LIMIT_AUTH", RateLimit{Limit: 5, Window: 15 * time.Minute}),
			Upload: getEnvAsRateLimit("RATE_LIMIT_UPLOAD", RateLimit{Limit: 20, Window: time.Hour}),
			Search: getEnvAsRateLimit("RATE_LIMIT_SEARCH", RateLimit{Limit: 100, Window: time.Minute}),
			Order:  getEnvAsRateLimit("RATE_LIMIT_ORDER", RateLimit{Limit: 30, Window: time.Hour}),
		},
	}
}

// DSN builds the Data Source Name for the configured driver
func (c *Config) DSN() (string, error) {
	switch c.DBDriver {
	case "mysql":
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true", nil
	case "postgres":
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, port, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode), nil
	case "sqlite":
		return c.DBName, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

// getEnv returns the variable or a default when unset
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsRateLimit parses values shaped like "100/1m"
func getEnvAsRateLimit(key string, defaultValue RateLimit) RateLimit {
	limit, window, ok := strings.Cut(os.Getenv(key), "/")
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || n <= 0 {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(window))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return RateLimit{Limit: n, Window: d}
}
