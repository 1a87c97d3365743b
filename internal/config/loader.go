package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var envBindings = map[string]string{
	"server.port":    "PORT",
	"logging.level":  "LOG_LEVEL",
	"logging.format": "LOG_FORMAT",
	"store.driver":   "STORE_DRIVER",
	"redis.address":  "REDIS_ADDRESS",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",
	"redis.ttl":      "REDIS_TTL",
	"quote.timezone": "QUOTE_TIMEZONE",
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory when one exists. A .env file that exists
// but cannot be read or parsed is an error.
func Load() (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("store.driver", StoreDriverMemory)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "0s")

	v.SetDefault("quote.timezone", "Asia/Kolkata")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverRedis:
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when store.driver is %q", StoreDriverRedis)
		}
		if cfg.Redis.TTL < 0 {
			return fmt.Errorf("redis.ttl must not be negative")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StoreDriverMemory, StoreDriverRedis, cfg.Store.Driver)
	}

	if _, err := cfg.Quote.Location(); err != nil {
		return fmt.Errorf("quote.timezone: %w", err)
	}

	return nil
}
