package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"cyphertext/internal/services/message"
	"cyphertext/internal/services/peerkey"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// Relay backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home             string        `yaml:"home" validate:"required"`
	Participant      string        `yaml:"participant" validate:"excludes=_"`
	RelayURL         string        `yaml:"relay_url" validate:"omitempty,url"`
	Cache            string        `yaml:"cache" validate:"oneof=file sqlite"`
	TransportTimeout time.Duration `yaml:"transport_timeout" validate:"gte=0"`
	KeyCacheSize     int           `yaml:"key_cache_size" validate:"gte=0"`
	LogLevel         string        `yaml:"log_level" validate:"oneof=debug info warn error none"`
	Relay            RelayConfig   `yaml:"relay"`
}

// RelayConfig configures cmd/relay.
type RelayConfig struct {
	Listen      string   `yaml:"listen" validate:"required"`
	Backend     string   `yaml:"backend" validate:"oneof=memory redis"`
	RedisAddr   string   `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB     int      `yaml:"redis_db" validate:"gte=0,lte=15"`
	RedisPrefix string   `yaml:"redis_prefix"`
	CORSOrigins []string `yaml:"cors_origins"`
	Metrics     bool     `yaml:"metrics"`
}

// DefaultConfig returns the settings used when no file overrides them.
func DefaultConfig() Config {
	return Config{
		Cache:            CacheFile,
		TransportTimeout: message.DefaultTimeout,
		KeyCacheSize:     peerkey.DefaultCacheSize,
		LogLevel:         "info",
		Relay: RelayConfig{
			Listen:      ":8080",
			Backend:     BackendMemory,
			RedisPrefix: "cyphertext",
			Metrics:     true,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. A missing file is not
// an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error { return validate(c) }

// Validate checks only the relay settings.
func (r RelayConfig) Validate() error { return validate(r) }

func validate(v any) error {
	if err := validator.New().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
