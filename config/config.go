package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	HTTP       ServerConfig
	MySQL      MySQLConfig
	Log        LogConfig
	Stripe     StripeConfig
	Checkout   CheckoutConfig
	Jobs       JobsConfig
	Migrations MigrationsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type StripeConfig struct {
	SecretKey   string
	APIBaseURL  string
	HTTPTimeout time.Duration
}

// CheckoutConfig carries refund and pending-checkout policy knobs.
// A PendingTimeoutMinutes of zero disables stale-cart expiry.
type CheckoutConfig struct {
	PendingTimeoutMinutes int
	RefundListLimit       int
	JobBatchSize          int32
}

type JobsConfig struct {
	ExpirePendingInterval time.Duration
}

type MigrationsConfig struct {
	Path string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "checkout-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stripe: StripeConfig{
			SecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
			APIBaseURL:  getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			HTTPTimeout: getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Checkout: CheckoutConfig{
			PendingTimeoutMinutes: getTimeoutMinutesEnv("PENDING_CHECKOUT_TIMEOUT_MINUTES", 30),
			RefundListLimit:       getIntEnv("CHECKOUT_REFUND_LIST_LIMIT", 100),
			JobBatchSize:          int32(getIntEnv("CHECKOUT_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ExpirePendingInterval: getMinutesEnv("CHECKOUT_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
		Migrations: MigrationsConfig{
			Path: getEnv("MIGRATIONS_PATH", "./app/repository/migrations"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getTimeoutMinutesEnv keeps the raw minute count because zero is meaningful:
// an unparsable value falls back to the default, a negative value clamps to
// zero, and zero disables expiry.
func getTimeoutMinutesEnv(key string, defaultMinutes int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultMinutes
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultMinutes
	}
	if n < 0 {
		return 0
	}
	return n
}
