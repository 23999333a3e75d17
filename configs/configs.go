// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// Binance contains credentials and environment selection for the
	// exchange client.
	Binance BinanceConfig

	// Kafka contains connection settings for the optional event sink.
	Kafka KafkaConfig
}

// BinanceConfig holds exchange client settings.
type BinanceConfig struct {
	// PublicKey is the API key sent in the request header. Never logged.
	PublicKey string

	// SecretKey signs request parameters. Never logged.
	SecretKey string

	// Testnet selects the sandbox endpoints instead of production.
	Testnet bool

	// RecvWindowMs is the server-side staleness tolerance for signed requests.
	RecvWindowMs int64

	// RequestTimeout bounds one REST call on the client side.
	RequestTimeout time.Duration

	// UserStream enables the private account event stream.
	UserStream bool
}

// KafkaConfig holds Kafka connection settings for the event sink.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	// Empty disables the Kafka sink.
	Broker string

	// Topic is the Kafka topic for normalized stream events.
	Topic string
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		Binance: BinanceConfig{
			PublicKey:      getEnv("BINANCE_API_KEY", ""),
			SecretKey:      getEnv("BINANCE_API_SECRET", ""),
			Testnet:        getEnvBool("BINANCE_TESTNET", true),
			RecvWindowMs:   int64(getEnvInt("BINANCE_RECV_WINDOW_MS", 5000)),
			RequestTimeout: time.Duration(getEnvInt("BINANCE_REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
			UserStream:     getEnvBool("BINANCE_USER_STREAM", true),
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_EVENT_TOPIC", "tradeflow_events"),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
