package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the enrichment system.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Wikifier WikifierConfig `mapstructure:"wikifier"`
}

// ServerConfig contains queue API settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	LeaseTimeout time.Duration `mapstructure:"lease_timeout"`
}

// StorageConfig groups the backing stores.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the task/enrichment database settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string, preferring an explicit URL.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// RedisConfig contains the optional wikifier response cache settings.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// WorkerConfig contains enrichment worker loop settings.
type WorkerConfig struct {
	QueueURL             string        `mapstructure:"queue_url"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	DownloadTimeout      time.Duration `mapstructure:"download_timeout"`
	TransportBackoff     time.Duration `mapstructure:"transport_backoff"`
	IdleSleep            time.Duration `mapstructure:"idle_sleep"`
	MalformedSleep       time.Duration `mapstructure:"malformed_sleep"`
	TargetSectionSeconds int           `mapstructure:"target_section_seconds"`
}

// WikifierConfig contains the annotation service settings.
type WikifierConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	UserKey string        `mapstructure:"user_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig reads configuration from the given file (or the default search
// paths when path is empty), with WIKICHUNKER_* environment overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.address", ":8001")
	viper.SetDefault("server.lease_timeout", 10*time.Minute)
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.redis.port", "6379")
	viper.SetDefault("storage.redis.cache_ttl", 24*time.Hour)
	viper.SetDefault("worker.request_timeout", 30*time.Second)
	viper.SetDefault("worker.download_timeout", 60*time.Second)
	viper.SetDefault("worker.transport_backoff", 5*time.Second)
	viper.SetDefault("worker.idle_sleep", 10*time.Second)
	viper.SetDefault("worker.malformed_sleep", 60*time.Second)
	viper.SetDefault("worker.target_section_seconds", 120)
	viper.SetDefault("wikifier.timeout", 60*time.Second)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("WIKICHUNKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}
