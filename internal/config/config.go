// Package config loads the service configuration once at startup. The
// returned Config is treated as read-only and passed to constructors.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/layer-3/tagdesk/adapters/tokenizer"
)

// Config is the root configuration.
// Sources, highest priority first:
//  1. environment variables;
//  2. the YAML file given by --config or CONFIG_PATH;
//  3. a .env file in the working directory;
//  4. env-default tags.
type Config struct {
	Env     string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	App     AppConfig     `yaml:"app"`
	Log     LogConfig     `yaml:"log"`
	JWT     JWTConfig     `yaml:"jwt"`
	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Auth    AuthConfig    `yaml:"auth"`
	CORS    CORSConfig    `yaml:"cors"`
	Events  EventsConfig  `yaml:"events"`
}

// AppConfig is the HTTP listener.
type AppConfig struct {
	Host           string        `yaml:"host" env:"APP_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"APP_PORT" env-default:"3000"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"APP_REQUEST_TIMEOUT" env-default:"5s"`
	// TrustedProxies lists IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" env-separator:","`
}

// Addr returns host:port.
func (a AppConfig) Addr() string {
	return net.JoinHostPort(a.Host, a.Port)
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// JWTConfig holds token secrets and lifetimes in seconds.
type JWTConfig struct {
	AccessTokenSecret     string `yaml:"access_token_secret" env:"JWT_ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshTokenSecret    string `yaml:"refresh_token_secret" env:"JWT_REFRESH_TOKEN_SECRET" env-required:"true"`
	AccessTokenExpiresIn  int64  `yaml:"access_token_expires_in" env:"JWT_ACCESS_TOKEN_EXPIRES_IN" env-default:"7200"`
	RefreshTokenExpiresIn int64  `yaml:"refresh_token_expires_in" env:"JWT_REFRESH_TOKEN_EXPIRES_IN" env-default:"604800"`
}

func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenExpiresIn) * time.Second
}

func (j JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenExpiresIn) * time.Second
}

// Tokenizer returns the signing configuration for adapters/tokenizer.
func (j JWTConfig) Tokenizer() tokenizer.Config {
	return tokenizer.Config{
		AccessSecret:  j.AccessTokenSecret,
		RefreshSecret: j.RefreshTokenSecret,
		AccessTTL:     j.AccessTTL(),
		RefreshTTL:    j.RefreshTTL(),
	}
}

type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	Migrate     bool   `yaml:"migrate" env:"DATABASE_MIGRATE" env-default:"true"`
}

// RedisConfig selects the cache store. Driver "memory" keeps tokens in process.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	Driver   string `yaml:"driver" env:"CACHE_DRIVER" env-default:"redis"`
}

// SessionConfig is the cookie session carrying the CAPTCHA challenge id.
type SessionConfig struct {
	Secret           string `yaml:"secret" env:"SESSION_SECRET" env-required:"true"`
	CookieName       string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"tagdesk_session"`
	CaptchaExpiresIn int64  `yaml:"captcha_expires_in" env:"CAPTCHA_EXPIRES_IN" env-default:"60"`
}

func (s SessionConfig) CaptchaTTL() time.Duration {
	return time.Duration(s.CaptchaExpiresIn) * time.Second
}

type AuthConfig struct {
	PasswordPepper     string `yaml:"password_pepper" env:"PASSWORD_PEPPER" env-required:"true"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" env:"RATELIMIT_AUTH_PER_MINUTE" env-default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173" env-separator:","`
}

type EventsConfig struct {
	Enabled bool `yaml:"enabled" env:"EVENTS_ENABLED" env-default:"false"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads the configuration from path (or CONFIG_PATH) and the environment.
func Load(path string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}

		// ReadConfig overlays the environment after parsing the file.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessTokenSecret == "" || c.JWT.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("JWT secrets must not be empty"))
	} else if c.JWT.AccessTokenSecret == c.JWT.RefreshTokenSecret {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_SECRET and JWT_REFRESH_TOKEN_SECRET must differ"))
	}
	if c.JWT.AccessTokenExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_EXPIRES_IN must be positive"))
	}
	if c.JWT.RefreshTokenExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_TOKEN_EXPIRES_IN must be positive"))
	}
	if c.Session.CaptchaExpiresIn <= 0 {
		errs = append(errs, errors.New("CAPTCHA_EXPIRES_IN must be positive"))
	}
	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if len(c.Auth.PasswordPepper) < 16 {
		errs = append(errs, errors.New("PASSWORD_PEPPER must be at least 16 bytes"))
	}
	if c.Auth.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATELIMIT_AUTH_PER_MINUTE must be positive"))
	}
	for _, p := range c.App.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p))
			}
		}
	}
	switch strings.ToLower(c.Redis.Driver) {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("CACHE_DRIVER %q is not one of redis, memory", c.Redis.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}
