// Package config provides configuration structures and loading logic for alertscope.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. ALERTSCOPE_APP_PORT.
const EnvPrefix = "ALERTSCOPE"

// Config represents the root configuration structure for alertscope.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Alerts        AlertsConfig        `mapstructure:"alerts"`
}

// AppConfig defines application-level settings such as host and port.
type AppConfig struct {
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	LogLevel           string   `mapstructure:"log_level"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// ElasticsearchConfig defines connection, index and scroll settings for the
// alert index.
type ElasticsearchConfig struct {
	Hosts           []string `mapstructure:"hosts"`
	Username        string   `mapstructure:"username"`
	PasswordEnv     string   `mapstructure:"password_env"`
	Password        string   `mapstructure:"-"`
	Timeout         string   `mapstructure:"timeout"`
	Index           string   `mapstructure:"index"`
	PageSize        int      `mapstructure:"page_size"`
	ScrollTTL       string   `mapstructure:"scroll_ttl"`
	AggregationSize int      `mapstructure:"aggregation_size"`
}

// AlertsConfig defines request defaults and presentation settings.
type AlertsConfig struct {
	DefaultResponder string `mapstructure:"default_responder"`
	URLTemplate      string `mapstructure:"url_template"`
}

// GetTimeoutDuration returns the request timeout as a time.Duration.
func (c *ElasticsearchConfig) GetTimeoutDuration() time.Duration {
	d, _ := parseOptionalDuration(c.Timeout)
	if d == 0 {
		return 1300 * time.Second
	}
	return d
}

// GetScrollTTLDuration parses the scroll keep-alive into a time.Duration.
func (c *ElasticsearchConfig) GetScrollTTLDuration() time.Duration {
	d, _ := parseOptionalDuration(c.ScrollTTL)
	if d == 0 {
		return time.Minute
	}
	return d
}

// SlogLevel maps the configured log level onto slog, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.cors_allowed_origins", []string{"*"})
	v.SetDefault("elasticsearch.hosts", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.timeout", "1300s")
	v.SetDefault("elasticsearch.index", "entity.alert")
	v.SetDefault("elasticsearch.page_size", 100)
	v.SetDefault("elasticsearch.scroll_ttl", "1m")
	v.SetDefault("elasticsearch.aggregation_size", 10000)
	v.SetDefault("alerts.default_responder", "olympus_middleware_sre")
	v.SetDefault("alerts.url_template", "https://zeta.app.opsgenie.com/alert/detail/%s/details")
}

// Load loads configuration from config.yaml or environment variables.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration through v, which may already carry bound
// command-line flags.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/alertscope")

	// Allow environment variables to override config
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Hosts given through the environment arrive as one comma-separated string.
	cfg.Elasticsearch.Hosts = splitList(cfg.Elasticsearch.Hosts)
	cfg.App.CORSAllowedOrigins = splitList(cfg.App.CORSAllowedOrigins)

	if cfg.Elasticsearch.PasswordEnv != "" {
		cfg.Elasticsearch.Password = os.Getenv(cfg.Elasticsearch.PasswordEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Elasticsearch.Hosts) == 0 {
		problems = append(problems, "elasticsearch.hosts must list at least one host")
	}
	if c.Elasticsearch.Index == "" {
		problems = append(problems, "elasticsearch.index is required")
	}
	if c.Elasticsearch.PageSize <= 0 {
		problems = append(problems, "elasticsearch.page_size must be positive")
	}
	if c.Elasticsearch.AggregationSize <= 0 {
		problems = append(problems, "elasticsearch.aggregation_size must be positive")
	}
	if _, err := parseOptionalDuration(c.Elasticsearch.Timeout); err != nil {
		problems = append(problems, fmt.Sprintf("elasticsearch.timeout: %v", err))
	}
	if _, err := parseOptionalDuration(c.Elasticsearch.ScrollTTL); err != nil {
		problems = append(problems, fmt.Sprintf("elasticsearch.scroll_ttl: %v", err))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		problems = append(problems, "app.port must be between 1 and 65535")
	}
	if c.Alerts.URLTemplate != "" && strings.Count(c.Alerts.URLTemplate, "%s") != 1 {
		problems = append(problems, "alerts.url_template must contain exactly one %s")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// parseOptionalDuration accepts an empty string, which selects the default.
func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
