// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	// Load .env file to environments
	_ "github.com/joho/godotenv/autoload"
)

// certificate ids are <prefix>-<code>, so the prefix itself cannot carry a dash
var certificatePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Config holds every setting the service reads at startup.
type Config struct {
	Port        int      `env:"PORT" envDefault:"8080"`
	GinMode     string   `env:"GIN_MODE" envDefault:"debug"`
	AllowOrigin []string `env:"ALLOW_ORIGIN" envSeparator:"," envDefault:"http://localhost:3000"`

	DB DBSettings

	SecretKey string `env:"SECRET_KEY"`
	JwtIssuer string `env:"JWT_ISSUER" envDefault:"InternHub"`

	// lifetime of tokens minted by cmd/create-admin
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	RateLimitPerSecond uint   `env:"RATE_LIMIT_REQUESTS_PER_SECOND" envDefault:"5"`
	RedisURL           string `env:"REDIS_URL"`

	GCSBucket      string `env:"GCS_BUCKET"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	CertificatePrefix string        `env:"CERTIFICATE_PREFIX" envDefault:"INT"`
	RenderURL         string        `env:"RENDER_URL"`
	RenderAPIKey      string        `env:"RENDER_API_KEY"`
	RenderTimeout     time.Duration `env:"RENDER_TIMEOUT" envDefault:"15s"`

	SendgridAPIKey  string `env:"SENDGRID_API_KEY"`
	EmailSender     string `env:"EMAIL_SENDER" envDefault:"no-reply@internhub.local"`
	EmailSenderName string `env:"EMAIL_SENDER_NAME" envDefault:"InternHub"`
	WhatsAppAPIURL  string `env:"WHATSAPP_API_URL"`
	WhatsAppAPIKey  string `env:"WHATSAPP_API_KEY"`

	NotifyWorkers       int     `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyQueueSize     int     `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifyRatePerSec    float64 `env:"NOTIFY_RATE_PER_SECOND" envDefault:"10"`
	DeliveryMaxTries    uint    `env:"DELIVERY_MAX_TRIES" envDefault:"3"`
	OverdueReminderCron string  `env:"OVERDUE_REMINDER_CRON" envDefault:"0 9 * * *"`

	AllowedDurations []int `env:"ALLOWED_DURATIONS" envSeparator:"," envDefault:"4,8,12,16"`
}

// DBSettings holds the parameters for connecting to PostgreSQL.
type DBSettings struct {
	Host            string        `env:"DB_HOST"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USERNAME"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_DATABASE"`
	ConnStr         string        `env:"DB_CONNECTION_STR"`
	UseConnStr      bool          `env:"USE_CONNECTION_STR" envDefault:"false"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.DB.UseConnStr {
		if c.DB.ConnStr == "" {
			return fmt.Errorf("DB_CONNECTION_STR is empty")
		}
	} else if c.DB.Host == "" || c.DB.User == "" || c.DB.Password == "" || c.DB.Name == "" {
		return fmt.Errorf("database configuration is incomplete")
	}
	if !certificatePrefixPattern.MatchString(c.CertificatePrefix) {
		return fmt.Errorf("CERTIFICATE_PREFIX must be letters and digits only, got %q", c.CertificatePrefix)
	}
	if len(c.AllowedDurations) == 0 {
		return fmt.Errorf("ALLOWED_DURATIONS must list at least one value")
	}
	for _, d := range c.AllowedDurations {
		if d <= 0 {
			return fmt.Errorf("ALLOWED_DURATIONS contains non-positive value %d", d)
		}
	}
	return nil
}

// DSN returns the connection string for the configured database.
func (d DBSettings) DSN() string {
	if d.UseConnStr {
		return d.ConnStr
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}
