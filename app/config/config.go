// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Slot backends.
const (
	SlotMemory = "memory"
	SlotFile   = "file"
	SlotNeo4j  = "neo4j"
	SlotRedis  = "redis"
	SlotSQLite = "sqlite"
)

// Config holds every runtime setting.
type Config struct {
	Addr         string
	PublicURL    string
	Slot         string
	StorageKey   string
	DataDir      string
	WriteTimeout time.Duration

	Neo4j  Neo4jConfig
	Redis  RedisConfig
	SQLite SQLiteConfig

	LogLevel string
	LogJSON  bool
}

// Neo4jConfig configures the Neo4j slot.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// RedisConfig configures the Redis slot.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SQLiteConfig configures the SQLite slot.
type SQLiteConfig struct {
	Path string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Addr:         "0.0.0.0:8080",
		PublicURL:    "http://localhost:8080/",
		Slot:         SlotFile,
		StorageKey:   "perfect-todo-v1",
		DataDir:      "data",
		WriteTimeout: 5 * time.Second,
		Neo4j: Neo4jConfig{
			URI:  "neo4j://localhost:7687",
			User: "neo4j",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "todo:",
		},
		SQLite: SQLiteConfig{
			Path: "data/todo.db",
		},
		LogLevel: "info",
	}
}

// Load reads .env (if present) and the environment on top of the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a config from a getenv-style lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()

	setString(&cfg.Addr, getenv("TODO_ADDR"))
	setString(&cfg.PublicURL, getenv("TODO_PUBLIC_URL"))
	setString(&cfg.Slot, strings.ToLower(getenv("TODO_SLOT")))
	setString(&cfg.StorageKey, getenv("TODO_STORAGE_KEY"))
	setString(&cfg.DataDir, getenv("TODO_DATA_DIR"))

	setString(&cfg.Neo4j.URI, getenv("NEO4J_URI"))
	setString(&cfg.Neo4j.User, getenv("NEO4J_USER"))
	setString(&cfg.Neo4j.Password, getenv("NEO4J_PASSWORD"))
	setString(&cfg.Neo4j.Database, getenv("NEO4J_DATABASE"))

	setString(&cfg.Redis.Addr, getenv("REDIS_ADDR"))
	setString(&cfg.Redis.Password, getenv("REDIS_PASSWORD"))
	setString(&cfg.Redis.Prefix, getenv("REDIS_PREFIX"))

	setString(&cfg.SQLite.Path, getenv("SQLITE_PATH"))
	setString(&cfg.LogLevel, getenv("LOG_LEVEL"))

	if v := getenv("TODO_WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TODO_WRITE_TIMEOUT %q: %w", v, err)
		}
		cfg.WriteTimeout = d
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.Redis.DB = n
	}
	if v := getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_JSON %q: %w", v, err)
		}
		cfg.LogJSON = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.StorageKey == "" {
		return errors.New("storage key is required")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	switch c.Slot {
	case SlotMemory:
	case SlotFile:
		if c.DataDir == "" {
			return errors.New("data directory is required for the file slot")
		}
	case SlotNeo4j:
		if c.Neo4j.URI == "" {
			return errors.New("NEO4J_URI is required for the neo4j slot")
		}
	case SlotRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required for the redis slot")
		}
	case SlotSQLite:
		if c.SQLite.Path == "" {
			return errors.New("SQLITE_PATH is required for the sqlite slot")
		}
	default:
		return fmt.Errorf("unknown slot backend %q", c.Slot)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
