// Package config loads client settings from a .env file, an optional YAML
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultAPIBase is the production backend.
const DefaultAPIBase = "https://enlite-new-production-a639.up.railway.app/api"

// Config is the full client configuration.
type Config struct {
	Env     string `yaml:"env" env:"ENLITE_ENV" env-default:"dev"`
	APIBase string `yaml:"api_base" env:"ENLITE_API_BASE" env-default:"https://enlite-new-production-a639.up.railway.app/api"`

	// RegisterBase overrides the host used for /register/. Empty means APIBase.
	RegisterBase string `yaml:"register_base" env:"ENLITE_REGISTER_BASE"`

	// RequestTimeout bounds each HTTP call; zero means no timeout.
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"ENLITE_REQUEST_TIMEOUT" env-default:"0s"`
	TokenSettleDelay time.Duration `yaml:"token_settle_delay" env:"ENLITE_TOKEN_SETTLE_DELAY" env-default:"50ms"`
	RedirectDelay    time.Duration `yaml:"redirect_delay" env:"ENLITE_REDIRECT_DELAY" env-default:"3s"`

	Storage Storage `yaml:"storage"`
	Widget  Widget  `yaml:"widget"`
}

// Storage selects and configures the persistent session store.
type Storage struct {
	Backend string `yaml:"backend" env:"ENLITE_STORAGE" env-default:"file"` // file | memory | redis
	Dir     string `yaml:"dir" env:"ENLITE_STORAGE_DIR"`
	Redis   Redis  `yaml:"redis"`
}

// Redis holds connection settings for the redis storage backend.
type Redis struct {
	Addr        string        `yaml:"addr" env:"ENLITE_REDIS_ADDR" env-default:"localhost:6379"`
	User        string        `yaml:"user" env:"ENLITE_REDIS_USER"`
	Password    string        `yaml:"password" env:"ENLITE_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"ENLITE_REDIS_DB" env-default:"0"`
	Prefix      string        `yaml:"prefix" env:"ENLITE_REDIS_PREFIX" env-default:"enlite:"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"ENLITE_REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"ENLITE_REDIS_TIMEOUT" env-default:"3s"`
}

// Widget configures the hosted payment widget.
type Widget struct {
	ScriptURL  string `yaml:"script_url" env:"ENLITE_WIDGET_SCRIPT" env-default:"https://checkout.razorpay.com/v1/checkout.js"`
	ListenAddr string `yaml:"listen_addr" env:"ENLITE_WIDGET_ADDR" env-default:"127.0.0.1:0"`
	Currency   string `yaml:"currency" env:"ENLITE_WIDGET_CURRENCY" env-default:"INR"`
	Merchant   string `yaml:"merchant" env:"ENLITE_WIDGET_MERCHANT" env-default:"Energy Prediction Service"`
	ThemeColor string `yaml:"theme_color" env:"ENLITE_WIDGET_THEME" env-default:"#3b82f6"`

	// Headless skips launching the system browser; the widget URL is only logged.
	Headless bool `yaml:"headless" env:"ENLITE_WIDGET_HEADLESS"`
}

// Load reads .env (if present), then path (if set), then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("ENLITE_CONFIG")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return errors.New("config: api base is empty")
	}
	switch c.Storage.Backend {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.RequestTimeout < 0 || c.TokenSettleDelay < 0 || c.RedirectDelay < 0 {
		return errors.New("config: negative duration")
	}
	return nil
}

// RegisterURL returns the base used for registration.
func (c *Config) RegisterURL() string {
	if c.RegisterBase != "" {
		return c.RegisterBase
	}
	return c.APIBase
}
