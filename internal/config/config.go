package config

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Config is loaded from the process environment (optionally seeded from a
// .env file) and an optional config.yaml next to the binary.
type Config struct {
	AppEnv  string `env:"APP_ENV" yaml:"app_env" default:"development" usage:"development or production"`
	AppPort string `env:"APP_PORT" yaml:"app_port" default:"5000" usage:"HTTP listen port"`

	DBDriver     string        `env:"DB_DRIVER" yaml:"db_driver" default:"postgres" usage:"postgres (lib/pq) or pgx"`
	DatabaseURL  string        `env:"DATABASE_URL" yaml:"database_url" usage:"full DSN, overrides DB_* parts"`
	DBHost       string        `env:"DB_HOST" yaml:"db_host"`
	DBPort       string        `env:"DB_PORT" yaml:"db_port" default:"5432"`
	DBUser       string        `env:"DB_USER" yaml:"db_user"`
	DBPassword   string        `env:"DB_PASSWORD" yaml:"db_password"`
	DBName       string        `env:"DB_NAME" yaml:"db_name"`
	DBSSLMode    string        `env:"DB_SSLMODE" yaml:"db_sslmode" default:"disable"`
	DBMaxOpen    int           `env:"DB_MAX_OPEN_CONNS" yaml:"db_max_open_conns" default:"25"`
	DBMaxIdle    int           `env:"DB_MAX_IDLE_CONNS" yaml:"db_max_idle_conns" default:"5"`
	DBConnMaxAge time.Duration `env:"DB_CONN_MAX_LIFETIME" yaml:"db_conn_max_lifetime" default:"30m"`

	OrderTxTimeout       time.Duration `env:"ORDER_TX_TIMEOUT" yaml:"order_tx_timeout" default:"10s" usage:"upper bound of an order creation transaction"`
	OrderItemConcurrency int           `env:"ORDER_ITEM_CONCURRENCY" yaml:"order_item_concurrency" default:"0" usage:"max concurrent item inserts, 0 is unbounded"`

	RateLimitRPS      float64 `env:"RATE_LIMIT_RPS" yaml:"rate_limit_rps" default:"10"`
	RateLimitBurst    int     `env:"RATE_LIMIT_BURST" yaml:"rate_limit_burst" default:"20"`
	InternalSecretKey string  `env:"INTERNAL_SECRET_KEY" yaml:"internal_secret_key"`

	CORSOrigins []string `env:"CORS_ORIGINS" yaml:"cors_origins" default:"*"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"15s"`
}

// ErrMissingDatabase is returned when neither DATABASE_URL nor DB_HOST is set.
var ErrMissingDatabase = errors.New("database is not configured: set DATABASE_URL or DB_HOST")

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		Files:     []string{"config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.DatabaseURL == "" && cfg.DBHost == "" {
		return nil, ErrMissingDatabase
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
