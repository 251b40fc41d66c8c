package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	GRPCPort       string
	StoreDriver    string
	DBPath         string
	LogLevel       string
	JaegerEndpoint string
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error while loading .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("GRPC_PORT", ":50051")
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "./products.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JAEGER_ENDPOINT", "")

	cfg := &Config{
		GRPCPort:       listenAddr(v.GetString("GRPC_PORT")),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		DBPath:         v.GetString("DB_PATH"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		JaegerEndpoint: v.GetString("JAEGER_ENDPOINT"),
	}

	switch cfg.StoreDriver {
	case DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// listenAddr accepts both "50051" and ":50051".
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
