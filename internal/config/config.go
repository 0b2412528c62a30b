package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	minProdSecretLength = 32

	// only ever used outside prod
	devJWTSecret = "tasklist-dev-secret-change-me"
)

var ErrInsecureConfig = errors.New("insecure configuration")

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev" validate:"oneof=dev test prod"`
	Port int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory" validate:"oneof=memory postgres sqlite"`
	DBURL         string `env:"DATABASE_URL"`
	DBHost        string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER" envDefault:"tasklist"`
	DBPassword    string `env:"DB_PASSWORD" envDefault:"tasklist"`
	DBName        string `env:"DB_NAME" envDefault:"tasklist"`
	DBSSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"tasklist.db"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"min=0"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h" validate:"gt=0"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12" validate:"min=4,max=14"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10" validate:"min=0"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m" validate:"gt=0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	SeedDemoUser bool `env:"SEED_DEMO_USER" envDefault:"true"`

	// zero disables the periodic purge of expired revocations
	RevocationPurgeInterval time.Duration `env:"REVOCATION_PURGE_INTERVAL" envDefault:"10m" validate:"min=0"`

	// only honoured for single-process drivers, see ListCacheTTL
	TaskCacheTTL time.Duration `env:"TASK_CACHE_TTL" envDefault:"5s" validate:"min=0"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"1048576" validate:"gt=0"`
}

// Load reads .env (if present) and the process environment, applies defaults
// and refuses to start with settings that are unsafe for the environment.
func Load() (Config, error) {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config

	err := env.Parse(&cfg, opts)

	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = cfg.buildDBURL()
	}

	if cfg.JWTSecret == "" && !cfg.IsProd() {
		slog.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	err = cfg.Validate()

	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func (c Config) Validate() error {
	err := validator.New().Struct(c)

	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.IsProd() {
		if len(c.JWTSecret) < minProdSecretLength {
			return fmt.Errorf("%w: JWT_SECRET must be at least %d characters in prod", ErrInsecureConfig, minProdSecretLength)
		}

		if c.JWTSecret == devJWTSecret {
			return fmt.Errorf("%w: JWT_SECRET is the development default", ErrInsecureConfig)
		}

		if c.StorageDriver == DriverMemory {
			return fmt.Errorf("%w: memory storage is not allowed in prod", ErrInsecureConfig)
		}
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInsecureConfig)
	}

	return nil
}

func (c Config) buildDBURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}

	return u.String()
}

// ListCacheTTL is the task list cache lifetime, zero when caching is off.
// Postgres may be shared by several replicas and a per-process cache would
// keep serving a list another replica already changed.
func (c Config) ListCacheTTL() time.Duration {
	if c.StorageDriver == DriverPostgres {
		return 0
	}

	return c.TaskCacheTTL
}

func (c Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
