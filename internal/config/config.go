package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server reads from the environment. A .env file
// in the working directory is honored for development; real deployments set
// the variables directly.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	BaseURL  string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite3"`
	DBDSN    string `envconfig:"DB_DSN" default:"chat.db"`

	CookieSecret string        `envconfig:"COOKIE_SECRET" default:"dev-secret-change-me"`
	TicketSecret string        `envconfig:"TICKET_SECRET" default:"dev-ticket-secret-change-me"`
	TicketTTL    time.Duration `envconfig:"TICKET_TTL" default:"1m"`

	// Optional: enables cross-instance fan-out and shared presence.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	// Optional: path to a newline-separated word list. Empty disables the censor.
	CensoredWordsFile string `envconfig:"CENSORED_WORDS_FILE"`
	CensorChar        string `envconfig:"CENSOR_CHAR" default:"*"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@askly.local"`
}

func Load() (*Config, error) {
	// Missing .env is fine, the environment may be set by the deployment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := cfg.CensorRune(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CensorRune returns the replacement character used by the moderator.
func (c *Config) CensorRune() (rune, error) {
	r := []rune(c.CensorChar)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSOR_CHAR must be a single character, got %q", c.CensorChar)
	}
	return r[0], nil
}
