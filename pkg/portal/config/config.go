package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment (and an optional .env file)
type Config struct {
	Port string

	DBDriver string
	DBDSN    string

	JWTSecret string

	ImageKitPrivateKey  string
	ImageKitURLEndpoint string

	RedisAddr     string
	RedisPassword string

	CacheTTL        time.Duration
	CacheMaxEntries int

	SeedFile string

	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		DBDriver: getEnv("PORTAL_DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("PORTAL_DB_DSN", "portal.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		ImageKitPrivateKey:  os.Getenv("IMAGEKIT_PRIVATE_KEY"),
		ImageKitURLEndpoint: getEnv("IMAGEKIT_URL_ENDPOINT", "https://ik.imagekit.io/promptportal"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CacheTTL:        getEnvAsDuration("PORTAL_CACHE_TTL", 0),
		CacheMaxEntries: getEnvAsInt("PORTAL_CACHE_MAX_ENTRIES", 10000),

		SeedFile: getEnv("PORTAL_SEED_FILE", "seed.yaml"),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFilename:   getEnv("LOG_FILENAME", "logs/portal.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
