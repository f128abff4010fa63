package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPPort       string        `yaml:"http_port"`
	StoreBackend   string        `yaml:"store_backend"`
	PostgresDSN    string        `yaml:"postgres_dsn"`
	JWTSecret      string        `yaml:"jwt_secret"`
	RedisURL       string        `yaml:"redis_url"`
	AMQPURL        string        `yaml:"amqp_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ListLimit      int           `yaml:"list_limit"`
	MaxListLimit   int           `yaml:"max_list_limit"`
	DBMaxOpenConns int           `yaml:"db_max_open_conns"`
	DBMaxIdleConns int           `yaml:"db_max_idle_conns"`
	DBConnMaxIdle  time.Duration `yaml:"db_conn_max_idle"`
	DBConnMaxLife  time.Duration `yaml:"db_conn_max_life"`
	DBPingDeadline time.Duration `yaml:"db_ping_deadline"`
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, in that precedence order.
func Load() *Config {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Fatalf("failed to load config file %s: %v", path, err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.PostgresDSN = getEnv("DATABASE_URL", cfg.PostgresDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.RequestTimeout = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ListLimit = getInt("LIST_LIMIT", cfg.ListLimit)
	cfg.MaxListLimit = getInt("MAX_LIST_LIMIT", cfg.MaxListLimit)
	cfg.DBMaxOpenConns = getInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = getInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.DBConnMaxIdle = getDuration("DB_CONN_MAX_IDLE", cfg.DBConnMaxIdle)
	cfg.DBConnMaxLife = getDuration("DB_CONN_MAX_LIFE", cfg.DBConnMaxLife)
	cfg.DBPingDeadline = getDuration("DB_PING_DEADLINE", cfg.DBPingDeadline)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.StoreBackend != BackendMemory && cfg.StoreBackend != BackendPostgres {
		log.Fatalf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendPostgres && cfg.PostgresDSN == "" {
		log.Fatal("DATABASE_URL is required for the postgres backend")
	}

	return cfg
}

func defaults() *Config {
	return &Config{
		HTTPPort:       "8080",
		StoreBackend:   BackendPostgres,
		RequestTimeout: 10 * time.Second,
		ListLimit:      50,
		MaxListLimit:   200,
		DBMaxOpenConns: 25,
		DBMaxIdleConns: 10,
		DBConnMaxIdle:  5 * time.Minute,
		DBConnMaxLife:  30 * time.Minute,
		DBPingDeadline: 30 * time.Second,
	}
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
