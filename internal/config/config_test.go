package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inDir runs the test from dir so the "." config path points there.
func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inDir(t, t.TempDir())

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.App.Host)
	assert.Equal(t, 5000, cfg.App.Port)
	assert.Equal(t, []string{"*"}, cfg.App.CORSAllowedOrigins)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Hosts)
	assert.Equal(t, "entity.alert", cfg.Elasticsearch.Index)
	assert.Equal(t, 100, cfg.Elasticsearch.PageSize)
	assert.Equal(t, 10000, cfg.Elasticsearch.AggregationSize)
	assert.Equal(t, 1300*time.Second, cfg.Elasticsearch.GetTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.Elasticsearch.GetScrollTTLDuration())
	assert.Equal(t, "olympus_middleware_sre", cfg.Alerts.DefaultResponder)
	assert.Equal(t, "https://zeta.app.opsgenie.com/alert/detail/%s/details", cfg.Alerts.URLTemplate)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	inDir(t, dir)

	yaml := []byte(`
app:
  port: 8080
  log_level: debug
elasticsearch:
  hosts:
    - http://es-1:9200
    - http://es-2:9200
  index: alerts-test
  page_size: 500
  scroll_ttl: 2m
  password_env: TEST_ES_PASSWORD
alerts:
  default_responder: payments_sre
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("TEST_ES_PASSWORD", "s3cret")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, slog.LevelDebug, cfg.App.SlogLevel())
	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.Elasticsearch.Hosts)
	assert.Equal(t, "alerts-test", cfg.Elasticsearch.Index)
	assert.Equal(t, 500, cfg.Elasticsearch.PageSize)
	assert.Equal(t, 2*time.Minute, cfg.Elasticsearch.GetScrollTTLDuration())
	assert.Equal(t, "s3cret", cfg.Elasticsearch.Password)
	assert.Equal(t, "payments_sre", cfg.Alerts.DefaultResponder)
}

func TestLoadEnvOverride(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("ALERTSCOPE_APP_PORT", "9999")
	t.Setenv("ALERTSCOPE_ELASTICSEARCH_HOSTS", "http://a:9200, http://b:9200")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.App.Port)
	assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, cfg.Elasticsearch.Hosts)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App: AppConfig{Port: 5000},
			Elasticsearch: ElasticsearchConfig{
				Hosts:           []string{"http://localhost:9200"},
				Index:           "entity.alert",
				PageSize:        100,
				AggregationSize: 10000,
			},
			Alerts: AlertsConfig{URLTemplate: "https://x/%s"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no hosts", func(c *Config) { c.Elasticsearch.Hosts = nil }, "elasticsearch.hosts"},
		{"no index", func(c *Config) { c.Elasticsearch.Index = "" }, "elasticsearch.index"},
		{"zero page size", func(c *Config) { c.Elasticsearch.PageSize = 0 }, "page_size"},
		{"bad port", func(c *Config) { c.App.Port = 70000 }, "app.port"},
		{"template without placeholder", func(c *Config) { c.Alerts.URLTemplate = "https://x/" }, "url_template"},
		{"malformed timeout", func(c *Config) { c.Elasticsearch.Timeout = "13OOs" }, "elasticsearch.timeout"},
		{"malformed scroll ttl", func(c *Config) { c.Elasticsearch.ScrollTTL = "one minute" }, "elasticsearch.scroll_ttl"},
		{"negative scroll ttl", func(c *Config) { c.Elasticsearch.ScrollTTL = "-1m" }, "elasticsearch.scroll_ttl"},
		{"explicit durations", func(c *Config) { c.Elasticsearch.Timeout, c.Elasticsearch.ScrollTTL = "90s", "2m" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for level, expected := range tests {
		cfg := AppConfig{LogLevel: level}
		assert.Equal(t, expected, cfg.SlogLevel(), level)
	}
}

func TestLoadRejectsMalformedTimeout(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("ALERTSCOPE_ELASTICSEARCH_TIMEOUT", "13OOs")

	_, err := LoadFrom(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch.timeout")
}
