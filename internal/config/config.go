package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env       string    `mapstructure:"env"`       // current application environment (local, dev, production etc)
	HTTP      HTTP      `mapstructure:"http"`      // API server section
	DB        DB        `mapstructure:"database"`  // database configuration section
	LLM       LLM       `mapstructure:"llm"`       // text generation gateway
	Redis     Redis     `mapstructure:"redis"`     // generation cache
	Reminders Reminders `mapstructure:"reminders"` // streak reminders
	Client    Client    `mapstructure:"client"`    // device client settings
}

// HTTP contains API server parameters.
type HTTP struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// LLM configures the OpenAI-compatible chat completion gateway.
type LLM struct {
	URL                  string        `mapstructure:"url"`
	APIKey               string        `mapstructure:"-"` // loaded from environment only
	Model                string        `mapstructure:"model"`
	Timeout              time.Duration `mapstructure:"timeout"`
	FlashcardTemperature float64       `mapstructure:"flashcard_temperature"`
	ScenarioTemperature  float64       `mapstructure:"scenario_temperature"`
}

// Redis configures the generation cache. An empty Addr disables it.
type Redis struct {
	Addr     string        `mapstructure:"-"`
	Password string        `mapstructure:"-"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Reminders configures the daily streak reminder job.
type Reminders struct {
	Schedule         string `mapstructure:"schedule"` // cron spec, evaluated in UTC
	TelegramAPIToken string `mapstructure:"-"`        // empty disables reminders
}

// Client configures the device-side client.
type Client struct {
	StorePath     string        `mapstructure:"store_path"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "90s")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("llm.url", "https://ai.gateway.lovable.dev/v1/chat/completions")
	v.SetDefault("llm.model", "google/gemini-2.5-flash")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.flashcard_temperature", 0.7)
	v.SetDefault("llm.scenario_temperature", 0.8)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("reminders.schedule", "0 18 * * *")
	v.SetDefault("client.store_path", "botaqiy_offline.db")
	v.SetDefault("client.probe_interval", "15s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Secrets are never read from the config file.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("llm_api_key", "LLM_API_KEY")
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.DB.URL = v.GetString("database_url")
	if cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	cfg.LLM.APIKey = v.GetString("llm_api_key")
	cfg.Reminders.TelegramAPIToken = v.GetString("telegram_api_token")
	cfg.Redis.Addr = v.GetString("redis_addr")
	cfg.Redis.Password = v.GetString("redis_password")

	return &cfg, nil
}
