package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server      ServerConfig
	StoreDriver string `validate:"oneof=postgres memory"`
	Postgres    PostgresConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Reservation ReservationConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int `validate:"min=1,max=65535"`
}

type RedisConfig struct {
	// Addr left empty runs without cache, pubsub, limiter and idempotency.
	Addr     string
	Password string
	DB       int `validate:"min=0"`
}

type PostgresConfig struct {
	User     string `validate:"required_if=Enabled true"`
	Password string `validate:"required_if=Enabled true"`
	Name     string `validate:"required_if=Enabled true"`
	Host     string `validate:"required_if=Enabled true"`
	Port     int    `validate:"min=1,max=65535"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `validate:"min=0"`
	Enabled  bool
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type RabbitMQConfig struct {
	// URL left empty disables reservation events.
	URL string `validate:"omitempty,url"`
}

type ReservationConfig struct {
	HoldTTL       time.Duration `validate:"gt=0"`
	MinHoldTTL    time.Duration `validate:"gt=0"`
	MaxHoldTTL    time.Duration `validate:"gtefield=MinHoldTTL"`
	CancelCutoff  time.Duration `validate:"min=0"`
	SweepInterval time.Duration `validate:"gt=0"`
	TxMaxRetries  int           `validate:"min=0,max=50"`
}

type RateLimitConfig struct {
	// Limit reservation attempts per user per Window.
	Limit  int           `validate:"min=1"`
	Window time.Duration `validate:"gt=0"`
	// RPS and Burst shed process-wide load before it reaches the store.
	RPS   float64 `validate:"gt=0"`
	Burst int     `validate:"min=1"`
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var errs []error
	num := func(key string, def int) int {
		v, err := intEnv(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		v, err := durationEnv(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	rps, err := strconv.ParseFloat(stringEnv("HTTP_RPS", "200"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid HTTP_RPS: %w", err))
	}

	driver := stringEnv("STORE_DRIVER", DriverPostgres)

	cfg := &Config{
		Server: ServerConfig{
			Host: stringEnv("SERVER_HOST", "localhost"),
			Port: num("SERVER_PORT", 8080),
		},
		StoreDriver: driver,
		Postgres: PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			Host:     stringEnv("POSTGRES_HOST", "localhost"),
			Port:     num("POSTGRES_PORT", 5432),
			SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: int32(num("POSTGRES_MAX_CONNS", 0)),
			Enabled:  driver == DriverPostgres,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       num("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL: os.Getenv("RABBITMQ_URL"),
		},
		Reservation: ReservationConfig{
			HoldTTL:       dur("HOLD_TTL", 5*time.Minute),
			MinHoldTTL:    dur("MIN_HOLD_TTL", 15*time.Second),
			MaxHoldTTL:    dur("MAX_HOLD_TTL", 10*time.Minute),
			CancelCutoff:  dur("CANCEL_CUTOFF", 24*time.Hour),
			SweepInterval: dur("SWEEP_INTERVAL", 30*time.Second),
			TxMaxRetries:  num("TX_MAX_RETRIES", 5),
		},
		RateLimit: RateLimitConfig{
			Limit:  num("RATE_LIMIT", 10),
			Window: dur("RATE_WINDOW", time.Minute),
			RPS:    rps,
			Burst:  num("HTTP_BURST", 400),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", op, errs[0])
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}
