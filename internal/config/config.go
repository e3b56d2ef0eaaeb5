package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file - ignore error if file doesn't exist
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Note: .env file not found or could not be loaded: %v\n", err)
	}
}

type Config struct {
	Primary       PrimaryConfig
	Database      DatabaseConfig
	Server        ServerConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Observability *ObservabilityConfig
	Paddle        PaddleConfig
	Mpesa         MpesaConfig
	Webhook       WebhookConfig
}

type PrimaryConfig struct {
	Env string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	IdleTimeout        int
	CORSAllowedOrigins []string
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
	KeyPrefix    string
}

type KafkaConfig struct {
	Brokers []string
}

type ObservabilityConfig struct {
	ServiceName  string
	Environment  string
	Logging      LoggingConfig
	NewRelic     NewRelicConfig
	HealthChecks HealthChecksConfig
}

type LoggingConfig struct {
	Level              string
	Format             string
	SlowQueryThreshold time.Duration
}

type NewRelicConfig struct {
	LicenseKey                string
	AppLogForwardingEnabled   bool
	DistributedTracingEnabled bool
	DebugLogging              bool
}

type HealthChecksConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	Checks   []string
}

type PaddleConfig struct {
	VendorID      string
	APIKey        string
	WebhookSecret string
	BaseURL       string
}

type MpesaConfig struct {
	WebhookSecret string
}

// WebhookConfig controls how the ingestion endpoints acknowledge bad input.
// Billing providers retry aggressively on non-2xx responses, so the default
// is to acknowledge unparseable bodies with a 200 and a failure payload.
type WebhookConfig struct {
	AckParseFailures bool
}

// Helper functions for parsing env vars
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}

func (c *ObservabilityConfig) GetLogLevel() string {
	if c.Logging.Level == "" {
		switch c.Environment {
		case "production":
			return "info"
		case "development":
			return "debug"
		default:
			return "info"
		}
	}
	return c.Logging.Level
}

func (c *ObservabilityConfig) IsProduction() bool {
	return c.Environment == "production"
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Primary: PrimaryConfig{
			Env: getEnv("TRADEBASE_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("TRADEBASE_DB_HOST", "localhost"),
			Port:            getEnvInt("TRADEBASE_DB_PORT", 5432),
			User:            getEnv("TRADEBASE_DB_USER", "tradebase"),
			Password:        getEnv("TRADEBASE_DB_PASSWORD", ""),
			Name:            getEnv("TRADEBASE_DB_NAME", "tradebase"),
			SSLMode:         getEnv("TRADEBASE_DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("TRADEBASE_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("TRADEBASE_DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvInt("TRADEBASE_DB_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("TRADEBASE_DB_CONN_MAX_IDLE_TIME", 60),
		},
		Server: ServerConfig{
			Port:               getEnv("TRADEBASE_SERVER_PORT", "8080"),
			ReadTimeout:        getEnvInt("TRADEBASE_SERVER_READ_TIMEOUT", 30),
			WriteTimeout:       getEnvInt("TRADEBASE_SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:        getEnvInt("TRADEBASE_SERVER_IDLE_TIMEOUT", 60),
			CORSAllowedOrigins: getEnvSlice("TRADEBASE_SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Address:      getEnv("TRADEBASE_REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnv("TRADEBASE_REDIS_PASSWORD", ""),
			DB:           getEnvInt("TRADEBASE_REDIS_DB", 0),
			PoolSize:     getEnvInt("TRADEBASE_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("TRADEBASE_REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvDuration("TRADEBASE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("TRADEBASE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("TRADEBASE_REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getEnvDuration("TRADEBASE_REDIS_LOCK_TTL", 30*time.Second),
			KeyPrefix:    getEnv("TRADEBASE_REDIS_KEY_PREFIX", "tradebase:"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("TRADEBASE_KAFKA_BROKERS", []string{"localhost:9092"}),
		},
		Observability: &ObservabilityConfig{
			ServiceName: "Tradebase",
			Environment: getEnv("TRADEBASE_ENV", "development"),
			Logging: LoggingConfig{
				Level:              getEnv("TRADEBASE_LOG_LEVEL", "debug"),
				Format:             getEnv("TRADEBASE_LOG_FORMAT", "console"),
				SlowQueryThreshold: getEnvDuration("TRADEBASE_LOG_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			},
			NewRelic: NewRelicConfig{
				LicenseKey:                getEnv("TRADEBASE_NEWRELIC_LICENSE_KEY", ""),
				AppLogForwardingEnabled:   getEnvBool("TRADEBASE_NEWRELIC_LOG_FORWARDING", true),
				DistributedTracingEnabled: getEnvBool("TRADEBASE_NEWRELIC_DISTRIBUTED_TRACING", true),
				DebugLogging:              getEnvBool("TRADEBASE_NEWRELIC_DEBUG", false),
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  getEnvBool("TRADEBASE_HEALTHCHECK_ENABLED", true),
				Interval: getEnvDuration("TRADEBASE_HEALTHCHECK_INTERVAL", 30*time.Second),
				Timeout:  getEnvDuration("TRADEBASE_HEALTHCHECK_TIMEOUT", 5*time.Second),
				Checks:   getEnvSlice("TRADEBASE_HEALTHCHECK_CHECKS", []string{"database", "redis"}),
			},
		},
		Paddle: PaddleConfig{
			VendorID:      getEnv("TRADEBASE_PADDLE_VENDOR_ID", ""),
			APIKey:        getEnv("TRADEBASE_PADDLE_API_KEY", ""),
			WebhookSecret: getEnv("TRADEBASE_PADDLE_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("TRADEBASE_PADDLE_BASE_URL", "https://vendors.paddle.com/api/2.0"),
		},
		Mpesa: MpesaConfig{
			WebhookSecret: getEnv("TRADEBASE_MPESA_WEBHOOK_SECRET", ""),
		},
		Webhook: WebhookConfig{
			AckParseFailures: getEnvBool("TRADEBASE_WEBHOOK_ACK_PARSE_FAILURES", true),
		},
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, fmt.Errorf("TRADEBASE_DB_HOST is required")
	}
	if cfg.Database.Name == "" {
		return nil, fmt.Errorf("TRADEBASE_DB_NAME is required")
	}

	return cfg, nil
}
