// ABOUTME: Layered configuration for the claim sync service
// ABOUTME: Defaults, then YAML file at XDG config path, then .env, then CLAIMSYNC_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName names the XDG directories and the environment prefix.
const AppName = "claimsync"

// Config is the resolved service configuration.
type Config struct {
	DatabasePath        string `mapstructure:"database_path"`
	BaseURL             string `mapstructure:"base_url"`
	ListenAddr          string `mapstructure:"listen_addr"`
	ServiceKey          string `mapstructure:"service_key"`
	CronSecret          string `mapstructure:"cron_secret"`
	ClaimSyncSecret     string `mapstructure:"claim_sync_secret"`
	WorkspaceSyncSecret string `mapstructure:"workspace_sync_secret"`
	LogLevel            string `mapstructure:"log_level"`

	Sync    SyncConfig    `mapstructure:"sync"`
	Storage StorageConfig `mapstructure:"storage"`
}

// SyncConfig tunes outbound replication.
type SyncConfig struct {
	Workers     int           `mapstructure:"workers"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
	// Interval drives the in-process scheduler of serve; zero disables it.
	Interval time.Duration `mapstructure:"interval"`
}

// StorageConfig locates the bucket holding claim files and photos.
type StorageConfig struct {
	Bucket       string        `mapstructure:"bucket"`
	Region       string        `mapstructure:"region"`
	Endpoint     string        `mapstructure:"endpoint"`
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl"`
}

// DefaultConfigPath is where Load looks when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultDatabasePath is the XDG data location of the SQLite file.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_path", DefaultDatabasePath())
	v.SetDefault("base_url", "")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("service_key", "")
	v.SetDefault("cron_secret", "")
	v.SetDefault("claim_sync_secret", "")
	v.SetDefault("workspace_sync_secret", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("sync.workers", 1)
	v.SetDefault("sync.http_timeout", 30*time.Second)
	v.SetDefault("sync.rate_limit", 5.0)
	v.SetDefault("sync.rate_burst", 5)
	v.SetDefault("sync.interval", time.Duration(0))

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.signed_url_ttl", time.Hour)
}

// Load resolves configuration. An empty path means DefaultConfigPath; a
// missing default file is not an error but a missing explicit file is.
func Load(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
		if explicit || !missing {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Sync.Workers <= 0 {
		cfg.Sync.Workers = 1
	}

	return cfg, nil
}

// Validate checks the settings the webhook server cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.BaseURL == "" {
		problems = append(problems, "base_url is required")
	}
	if c.ServiceKey == "" {
		problems = append(problems, "service_key is required")
	}
	if c.ListenAddr == "" {
		problems = append(problems, "listen_addr is required")
	}
	if c.Sync.HTTPTimeout <= 0 {
		problems = append(problems, "sync.http_timeout must be positive")
	}
	if c.Sync.Interval > 0 && c.CronSecret == "" {
		problems = append(problems, "cron_secret is required when sync.interval is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
