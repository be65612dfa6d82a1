package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool

	// HTTP
	ServerAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	GinMode      string

	// Admin
	AdminPerPage int
}

// Defaults returns the configuration used for every variable left unset.
func Defaults() Config {
	return Config{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ServerAddr:      ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		GinMode:         "debug",
		AdminPerPage:    100,
	}
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] config: could not read .env: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only. Unset variables
// keep their Defaults value.
func FromEnv() (*Config, error) {
	cfg := Defaults()

	if err := loadEnvStringRequired(&cfg.DatabaseURL, "DATABASE_URL"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&cfg.MaxOpenConns, "DB_MAX_OPEN_CONNS"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&cfg.MaxIdleConns, "DB_MAX_IDLE_CONNS"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&cfg.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME"); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&cfg.MigrateOnStart, "MIGRATE_ON_START"); err != nil {
		return nil, err
	}

	loadEnvString(&cfg.ServerAddr, "SERVER_ADDR")
	if err := loadEnvDuration(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT"); err != nil {
		return nil, err
	}
	loadEnvString(&cfg.GinMode, "GIN_MODE")

	if err := loadEnvInt(&cfg.AdminPerPage, "ADMIN_LIST_PER_PAGE"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.MaxOpenConns)
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS, got %d", c.MaxIdleConns)
	}
	if c.AdminPerPage < 1 {
		return fmt.Errorf("ADMIN_LIST_PER_PAGE must be positive, got %d", c.AdminPerPage)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode)
	}
	return nil
}

// The loaders below leave *field untouched when key is unset.

func loadEnvString(field *string, key string) {
	if value := os.Getenv(key); value != "" {
		*field = value
	}
}

func loadEnvStringRequired(field *string, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return fmt.Errorf("%s environment variable is required", key)
	}
	*field = value
	return nil
}

func loadEnvInt(field *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	*field = n
	return nil
}

func loadEnvBool(field *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}
	*field = b
	return nil
}

func loadEnvDuration(field *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	*field = d
	return nil
}
