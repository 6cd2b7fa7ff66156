package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	MySQLHost  string `env:"MYSQL_HOST" envDefault:"mysql"`
	MySQLPort  string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB    string `env:"MYSQL_DB" envDefault:"lendledger"`
	MySQLUser  string `env:"MYSQL_USER" envDefault:"lendledger"`
	MySQLPass  string `env:"MYSQL_PASS" envDefault:"lendledger"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"lendledger.db"`

	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	JWTSecret string `env:"JWT_SECRET"`

	ReceiptBaseURL    string        `env:"RECEIPT_BASE_URL"`
	ReceiptURLTTL     time.Duration `env:"RECEIPT_URL_TTL" envDefault:"15m"`
	ReceiptSigningKey string        `env:"RECEIPT_SIGNING_KEY"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM" envDefault:"no-reply@lendledger.local"`

	ReminderCron          string `env:"REMINDER_CRON" envDefault:"0 8 * * *"`
	ReminderLookaheadDays int    `env:"REMINDER_LOOKAHEAD_DAYS" envDefault:"3"`
}

// Load reads the environment. Call Validate before use.
func Load() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or sqlite, got %q", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.ReceiptBaseURL != "" && c.ReceiptSigningKey == "" {
		return errors.New("RECEIPT_SIGNING_KEY is required when RECEIPT_BASE_URL is set")
	}
	if c.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.ReminderLookaheadDays < 0 {
		return errors.New("REMINDER_LOOKAHEAD_DAYS cannot be negative")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MySQLDSN()
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME; loc=UTC keeps created_at ordering stable
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) MailEnabled() bool { return c.SMTPHost != "" }

func (c *Config) ReceiptsEnabled() bool { return c.ReceiptBaseURL != "" }
