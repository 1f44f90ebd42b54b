package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type RotationCfg struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type LoggingCfg struct {
	Level       string      `mapstructure:"level"`
	Development bool        `mapstructure:"development"`
	File        string      `mapstructure:"file"`
	Rotation    RotationCfg `mapstructure:"rotation"`
}

type FilterKeysCfg struct {
	// Backend is "memory" or "redis".
	Backend         string        `mapstructure:"backend"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RedisCfg struct {
	Address  string `mapstructure:"address"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PreferencesCfg struct {
	Database string `mapstructure:"database"`
}

type ConnLogCfg struct {
	DSN      string `mapstructure:"dsn"`
	PageSize int    `mapstructure:"page_size"`
}

type HTTPCfg struct {
	Listen      string `mapstructure:"listen"`
	UserHeader  string `mapstructure:"user_header"`
	RolesHeader string `mapstructure:"roles_header"`
	PiiRole     string `mapstructure:"pii_role"`
}

type ClassifyCfg struct {
	RulesFile string `mapstructure:"rules_file"`
}

type Config struct {
	Version     string         `mapstructure:"version"`
	Logging     LoggingCfg     `mapstructure:"logging"`
	FilterKeys  FilterKeysCfg  `mapstructure:"filter_keys"`
	Redis       RedisCfg       `mapstructure:"redis"`
	Preferences PreferencesCfg `mapstructure:"preferences"`
	ConnLog     ConnLogCfg     `mapstructure:"connlog"`
	HTTP        HTTPCfg        `mapstructure:"http"`
	Classify    ClassifyCfg    `mapstructure:"classify"`
}

var cfg *Config

// SetDefaults registers every default on v. Load calls it; the CLI calls it
// before binding flags so flag defaults and file defaults agree.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("version", "0.1")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.rotation.max_size", 50)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("filter_keys.backend", "memory")
	v.SetDefault("filter_keys.idle_timeout", "30m")
	v.SetDefault("filter_keys.cleanup_interval", "10m")
	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("preferences.database", "preferences.db")
	v.SetDefault("connlog.page_size", 50)
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.user_header", "X-Auth-User")
	v.SetDefault("http.roles_header", "X-Auth-Roles")
	v.SetDefault("http.pii_role", "PII")
}

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	SetDefaults(v)

	v.SetEnvPrefix("PIIGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return err
	}

	cfg = &c
	return nil
}

// Validate rejects settings that would only fail later at first use.
func (c *Config) Validate() error {
	switch c.FilterKeys.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("filter_keys.backend must be memory or redis, got %q", c.FilterKeys.Backend)
	}
	if c.FilterKeys.IdleTimeout <= 0 {
		return fmt.Errorf("filter_keys.idle_timeout must be positive")
	}
	if c.FilterKeys.CleanupInterval < 0 {
		return fmt.Errorf("filter_keys.cleanup_interval must not be negative")
	}
	if c.ConnLog.PageSize <= 0 {
		return fmt.Errorf("connlog.page_size must be positive")
	}
	return nil
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
