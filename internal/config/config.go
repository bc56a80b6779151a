package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the POS system
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Server   ServerConfig   `yaml:"server"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Storage  StorageConfig  `yaml:"storage"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	Migrations string `yaml:"migrations"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Enabled  bool   `yaml:"enabled"`
}

// ServerConfig holds HTTP adapter settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LedgerConfig holds order ledger behaviour switches
type LedgerConfig struct {
	Timezone       string `yaml:"timezone"`
	RecalcOnDelete bool   `yaml:"recalc_on_delete"`
}

// StorageConfig selects the repository implementation ("postgres" or "memory")
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:       "localhost",
			Port:       5432,
			User:       "pos",
			Password:   "pos",
			Database:   "pos",
			Migrations: "migrations",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
		},
		Server:  ServerConfig{Port: 3000},
		Ledger:  LedgerConfig{Timezone: "Local"},
		Storage: StorageConfig{Driver: "postgres"},
	}
}

// Load reads configuration from a YAML file, then applies .env and POS_* overrides.
// A missing file is not an error; defaults and the environment are used instead.
func Load(filename string) (*Config, error) {
	cfg := Default()

	content, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides file values with POS_* environment variables
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"POS_DB_HOST":        &c.Database.Host,
		"POS_DB_USER":        &c.Database.User,
		"POS_DB_PASSWORD":    &c.Database.Password,
		"POS_DB_NAME":        &c.Database.Database,
		"POS_DB_MIGRATIONS":  &c.Database.Migrations,
		"POS_RABBITMQ_HOST":  &c.RabbitMQ.Host,
		"POS_RABBITMQ_USER":  &c.RabbitMQ.User,
		"POS_RABBITMQ_PASS":  &c.RabbitMQ.Password,
		"POS_TIMEZONE":       &c.Ledger.Timezone,
		"POS_STORAGE_DRIVER": &c.Storage.Driver,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"POS_DB_PORT":       &c.Database.Port,
		"POS_RABBITMQ_PORT": &c.RabbitMQ.Port,
		"POS_HTTP_PORT":     &c.Server.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"POS_RABBITMQ_ENABLED": &c.RabbitMQ.Enabled,
		"POS_RECALC_ON_DELETE": &c.Ledger.RecalcOnDelete,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", key, err)
		}
		*dst = b
	}

	return nil
}

// Validate checks values that cannot be defaulted sensibly
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the ledger time zone used for day boundaries
func (c *Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" || c.Ledger.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger timezone %q: %w", c.Ledger.Timezone, err)
	}
	return loc, nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
