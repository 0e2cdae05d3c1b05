package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Kafka
	KafkaBrokers string
	KafkaTopic   string

	// API Configuration
	APIPort string
	APIHost string

	// Magento connector
	MagentoBaseURL string
	MagentoAPIKey  string

	// Migration tuning
	BatchSize          int
	EmptyPageThreshold int
	MaxPageScan        int
	LogRetentionDays   int
	RequestTimeoutSecs int

	// Connector endpoint (cmd/connector only)
	ConnectorPort   string
	ConnectorAPIKey string
	MagentoDSN      string

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", "sqlite://magewoo.db"),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "migration-jobs"),
		APIPort:            getEnv("API_PORT", "8080"),
		APIHost:            getEnv("API_HOST", "0.0.0.0"),
		MagentoBaseURL:     getEnv("MAGENTO_BASE_URL", ""),
		MagentoAPIKey:      getEnv("MAGENTO_API_KEY", ""),
		BatchSize:          getEnvAsInt("MIGRATION_BATCH_SIZE", 20),
		EmptyPageThreshold: getEnvAsInt("MIGRATION_EMPTY_PAGE_THRESHOLD", 3),
		MaxPageScan:        getEnvAsInt("MIGRATION_MAX_PAGE_SCAN", 10000),
		LogRetentionDays:   getEnvAsInt("MIGRATION_LOG_RETENTION_DAYS", 30),
		RequestTimeoutSecs: getEnvAsInt("MAGENTO_REQUEST_TIMEOUT", 30),
		ConnectorPort:      getEnv("CONNECTOR_PORT", "8090"),
		ConnectorAPIKey:    getEnv("CONNECTOR_API_KEY", ""),
		MagentoDSN:         getEnv("MAGENTO_DSN", ""),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
