package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	Refdata   RefdataConfig   `mapstructure:"refdata"`
}

type AppConfig struct {
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	Mode string `mapstructure:"mode"` // "live" or "synthetic"
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Enabled  bool          `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Enabled  bool   `mapstructure:"enabled"`
}

type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxFailures  int           `mapstructure:"max_failures"`
}

type FeedsConfig struct {
	QuoteURL     string   `mapstructure:"quote_url"`
	QuoteAPIKey  string   `mapstructure:"quote_api_key"`
	Symbols      []string `mapstructure:"symbols"`
	SpotSymbol   string   `mapstructure:"spot_symbol"`
	ComexURL     string   `mapstructure:"comex_url"`
	RepoURL      string   `mapstructure:"repo_url"`
	FilingsURL   string   `mapstructure:"filings_url"`
	FilingsQuery string   `mapstructure:"filings_query"`
	NewsURL      string   `mapstructure:"news_url"`
	NewsQuery    string   `mapstructure:"news_query"`
}

type RefdataConfig struct {
	BanksFile      string `mapstructure:"banks_file"`
	CountdownsFile string `mapstructure:"countdowns_file"`
	CascadeFile    string `mapstructure:"cascade_file"`
}

// Load reads configuration from .env, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	if err := godotenv.Load(); err != nil {
		log.Println("Note: no .env file found, relying on environment variables")
	}

	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "local")
	v.SetDefault("app.mode", "synthetic")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "faultwatch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "faultwatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.enabled", false)

	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.fetch_timeout", 10*time.Second)
	v.SetDefault("scheduler.max_failures", 5)

	v.SetDefault("feeds.quote_url", "")
	v.SetDefault("feeds.quote_api_key", "")
	v.SetDefault("feeds.symbols", []string{"SLV", "PSLV", "GLD", "BAC", "JPM", "C"})
	v.SetDefault("feeds.spot_symbol", "XAGUSD")
	v.SetDefault("feeds.comex_url", "")
	v.SetDefault("feeds.repo_url", "")
	v.SetDefault("feeds.filings_url", "")
	v.SetDefault("feeds.filings_query", "silver short position")
	v.SetDefault("feeds.news_url", "")
	v.SetDefault("feeds.news_query", "silver squeeze")

	v.SetDefault("refdata.banks_file", "refdata/banks.yaml")
	v.SetDefault("refdata.countdowns_file", "refdata/countdowns.yaml")
	v.SetDefault("refdata.cascade_file", "refdata/cascade.yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env", "app.mode")
	bindEnv(v, "redis.addr", "redis.password", "redis.db", "redis.ttl", "redis.enabled")
	bindEnv(v, "database.host", "database.port", "database.user",
		"database.password", "database.dbname", "database.sslmode", "database.enabled")
	bindEnv(v, "scheduler.interval", "scheduler.fetch_timeout", "scheduler.max_failures")
	bindEnv(v, "feeds.quote_url", "feeds.quote_api_key", "feeds.symbols", "feeds.spot_symbol",
		"feeds.comex_url", "feeds.repo_url", "feeds.filings_url", "feeds.filings_query",
		"feeds.news_url", "feeds.news_query")
	bindEnv(v, "refdata.banks_file", "refdata.countdowns_file", "refdata.cascade_file")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.App.Port)
	}
	if c.App.Mode != "live" && c.App.Mode != "synthetic" {
		return fmt.Errorf("invalid mode %q, want live or synthetic", c.App.Mode)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	if c.Scheduler.FetchTimeout <= 0 || c.Scheduler.FetchTimeout >= c.Scheduler.Interval {
		return fmt.Errorf("fetch timeout must be positive and below the refresh interval")
	}
	if c.App.Mode == "live" && c.Feeds.QuoteURL == "" {
		return fmt.Errorf("live mode requires feeds.quote_url")
	}
	return nil
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("could not bind env var for key %s: %v", key, err)
		}
	}
}
