package config

import "time"

const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)

// Config is the webhook configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Quote   QuoteConfig   `mapstructure:"quote"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the session quote store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"` // zero keeps quotes until overwritten
}

// QuoteConfig holds presentation settings for follow-up answers.
type QuoteConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone.
func (q QuoteConfig) Location() (*time.Location, error) {
	return time.LoadLocation(q.Timezone)
}
