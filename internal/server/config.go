package server

import (
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the server's environment configuration. DATABASE_URL wins over
// the piecewise DB_* variables when both are set.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" env-default:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	DBHost          string        `env:"DB_HOST" env-default:"127.0.0.1"`
	DBPort          string        `env:"DB_PORT" env-default:"5432"`
	DBUser          string        `env:"DB_USER" env-default:"app"`
	DBPassword      string        `env:"DB_PASSWORD" env-default:"app"`
	DBName          string        `env:"DB_NAME" env-default:"timesheet_hub"`
	DBSSLMode       string        `env:"DB_SSLMODE" env-default:"disable"`
	WebhookURL      string        `env:"WEBHOOK_URL"`
	SitesPath       string        `env:"SITES_PATH"`
	AuthzModelPath  string        `env:"AUTHZ_MODEL_PATH"`
	AuthzPolicyPath string        `env:"AUTHZ_POLICY_PATH"`
	DrainLimit      int           `env:"OUTBOX_DRAIN_LIMIT" env-default:"200"`
	DrainInterval   time.Duration `env:"OUTBOX_DRAIN_INTERVAL" env-default:"30s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
