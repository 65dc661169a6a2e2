package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"3000"`
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	RedisURL       string        `env:"REDIS_URL"`
	NoEmailVerify  bool          `env:"NO_EMAIL_VERIFY" envDefault:"false"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	Token          TokenConfig
	Code           CodeConfig
	Email          EmailConfig
	Log            LogConfig
}

type TokenConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"accountsvc"`
}

type CodeConfig struct {
	Length int           `env:"CODE_LENGTH" envDefault:"6"`
	TTL    time.Duration `env:"CODE_TTL" envDefault:"10m"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_SERVER_HOST"`
	Port     int    `env:"EMAIL_SERVER_PORT" envDefault:"587"`
	Username string `env:"EMAIL_SERVER_USER"`
	Password string `env:"EMAIL_SERVER_PASSWORD"`
	From     string `env:"EMAIL_FROM"`
	Secure   bool   `env:"EMAIL_SERVER_SECURE" envDefault:"false"`
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Dev        bool   `env:"LOG_DEV" envDefault:"false"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"20"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(clean(cfg.StoreDriver))
	cfg.DatabaseURL = clean(cfg.DatabaseURL)
	cfg.Token.Secret = clean(cfg.Token.Secret)
	cfg.Email.Host = clean(cfg.Email.Host)
	cfg.Email.Username = clean(cfg.Email.Username)
	cfg.Email.Password = clean(cfg.Email.Password)
	cfg.Email.From = clean(cfg.Email.From)
	cfg.TrustedProxies = parseList(cfg.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if c.Code.Length < 4 || c.Code.Length > 10 {
		return fmt.Errorf("CODE_LENGTH must be between 4 and 10")
	}
	if c.Code.TTL <= 0 {
		return fmt.Errorf("CODE_TTL must be positive")
	}
	return nil
}

func (c Config) ListenAddr() string {
	return ":" + c.Port
}

func clean(val string) string {
	return strings.Trim(val, "\"' \t\r\n")
}

func parseList(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
