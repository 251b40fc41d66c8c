package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/repository"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	GRPCPort            string
	ProductServiceAddr  string
	RequestTimeout      time.Duration
	CompensationTimeout time.Duration
	StoreDriver         string
	DB                  repository.Credentials
	RedisAddr           string
	IdempotencyTTL      time.Duration
	KafkaBrokers        []string
	KafkaTopic          string
	LogLevel            string
	JaegerEndpoint      string
}

// Load reads configuration from the environment, after an optional .env file.
// An empty REDIS_ADDR disables idempotency keys; empty KAFKA_BROKERS disables the outbox publisher.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error while loading .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("GRPC_PORT", ":50055")
	v.SetDefault("PRODUCT_SERVICE_ADDR", "localhost:50051")
	v.SetDefault("REQUEST_TIMEOUT", "5s")
	v.SetDefault("COMPENSATION_TIMEOUT", "10s")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "orders")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "orders-outbox")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JAEGER_ENDPOINT", "")

	cfg := &Config{
		GRPCPort:            listenAddr(v.GetString("GRPC_PORT")),
		ProductServiceAddr:  v.GetString("PRODUCT_SERVICE_ADDR"),
		RequestTimeout:      v.GetDuration("REQUEST_TIMEOUT"),
		CompensationTimeout: v.GetDuration("COMPENSATION_TIMEOUT"),
		StoreDriver:         strings.ToLower(v.GetString("STORE_DRIVER")),
		DB: repository.Credentials{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		RedisAddr:      v.GetString("REDIS_ADDR"),
		IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),
		KafkaBrokers:   splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:     v.GetString("KAFKA_TOPIC"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		JaegerEndpoint: v.GetString("JAEGER_ENDPOINT"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.DB.Port <= 0 {
		return nil, fmt.Errorf("invalid DB_PORT %q", v.GetString("DB_PORT"))
	}

	return cfg, nil
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
