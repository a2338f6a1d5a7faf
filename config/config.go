package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"` // local, dev, production
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Google   Google   `mapstructure:"google"`
	R2       R2       `mapstructure:"r2"`
	Jobs     Jobs     `mapstructure:"jobs"`
}

type Server struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Google struct {
	ClientID       string `mapstructure:"client_id"`
	TokenCacheSize int    `mapstructure:"token_cache_size"`
}

// R2 is optional; the export archive is disabled when Bucket is empty.
type R2 struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	CDNBaseURL      string `mapstructure:"cdn_base_url"`
}

func (r R2) Enabled() bool {
	return r.Bucket != ""
}

type Jobs struct {
	StaleAfter         time.Duration `mapstructure:"stale_after"`
	StaleReportEvery   time.Duration `mapstructure:"stale_report_every"`
	ExportArchiveEvery time.Duration `mapstructure:"export_archive_every"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if present), config/config.yaml (if present) and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetDefault("env", "local")
	v.SetDefault("server.address", ":5200")
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("google.token_cache_size", 1024)
	v.SetDefault("jobs.stale_after", "30m")
	v.SetDefault("jobs.stale_report_every", "15m")
	v.SetDefault("jobs.export_archive_every", "24h")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("server.address", "SERVER_ADDRESS")
	_ = v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("r2.account_id", "CLOUDFLARE_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.access_key_secret", "R2_ACCESS_KEY_SECRET")
	_ = v.BindEnv("r2.bucket", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.cdn_base_url", "CDN_BASE_URL")

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

	cfg.Server.AllowedOrigins = trimOrigins(cfg.Server.AllowedOrigins)

	if cfg.Database.URL == "" || cfg.Google.ClientID == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	return &cfg, nil
}

// trimOrigins drops the blanks left by "a, b," style env values.
func trimOrigins(origins []string) []string {
	var out []string
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
