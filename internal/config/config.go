package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/airmeet-sync/internal/model"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
}

type AirmeetConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DevRevConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ContactCacheTTL time.Duration `mapstructure:"contact_cache_ttl"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type DebugConfig struct {
	// BufferSize caps the mapped-items and notification recency buffers.
	BufferSize  int    `mapstructure:"buffer_size"`
	TokenSecret string `mapstructure:"token_secret"`
}

type Config struct {
	Server              ServerConfig             `mapstructure:"server"`
	Airmeet             AirmeetConfig            `mapstructure:"airmeet"`
	DevRev              DevRevConfig             `mapstructure:"devrev"`
	WebhookSecret       string                   `mapstructure:"webhook_secret"`
	WebhookVerification bool                     `mapstructure:"webhook_verification"`
	Redis               RedisConfig              `mapstructure:"redis"`
	SMTP                SMTPConfig               `mapstructure:"smtp"`
	RateLimit           RateLimitConfig          `mapstructure:"rate_limit"`
	Log                 LogConfig                `mapstructure:"log"`
	Debug               DebugConfig              `mapstructure:"debug"`
	Notifications       model.NotificationConfig `mapstructure:"notifications"`
}

// secrets are the env-only overrides. They always win over file values so a
// secret never has to live in config.yaml.
type secrets struct {
	WebhookSecret    string `envconfig:"WEBHOOK_SECRET"`
	AirmeetAPIKey    string `envconfig:"AIRMEET_API_KEY"`
	DevRevAPIKey     string `envconfig:"DEVREV_API_KEY"`
	DebugTokenSecret string `envconfig:"DEBUG_TOKEN_SECRET"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("server.max_body_size", 1<<20)
	viper.SetDefault("airmeet.base_url", "https://api.airmeet.com/v1")
	viper.SetDefault("airmeet.timeout", 15*time.Second)
	viper.SetDefault("devrev.base_url", "https://api.devrev.ai/v1")
	viper.SetDefault("devrev.timeout", 15*time.Second)
	viper.SetDefault("devrev.contact_cache_ttl", 30*time.Second)
	viper.SetDefault("webhook_verification", true)
	viper.SetDefault("redis.channel", "notifications")
	viper.SetDefault("debug.buffer_size", 100)
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var sec secrets
	if err := envconfig.Process("", &sec); err != nil {
		return nil, fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	if sec.WebhookSecret != "" {
		config.WebhookSecret = sec.WebhookSecret
	}
	if sec.AirmeetAPIKey != "" {
		config.Airmeet.APIKey = sec.AirmeetAPIKey
	}
	if sec.DevRevAPIKey != "" {
		config.DevRev.APIKey = sec.DevRevAPIKey
	}
	if sec.DebugTokenSecret != "" {
		config.Debug.TokenSecret = sec.DebugTokenSecret
	}
	if sec.SMTPPassword != "" {
		config.SMTP.Password = sec.SMTPPassword
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
