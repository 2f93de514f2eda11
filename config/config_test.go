package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: true},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "/path/only" }, wantErr: true},
		{name: "empty region", mutate: func(c *Config) { c.Region = "" }, wantErr: true},
		{name: "negative min price", mutate: func(c *Config) { c.MinPrice = -1 }, wantErr: true},
		{name: "max price below min", mutate: func(c *Config) { c.MinPrice = 100; c.MaxPrice = 50 }, wantErr: true},
		{name: "zero pages", mutate: func(c *Config) { c.MaxPages = 0 }, wantErr: true},
		{name: "zero parallelism", mutate: func(c *Config) { c.Parallelism = 0 }, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
		{name: "backoff above cap", mutate: func(c *Config) { c.RetryBackoff = time.Minute; c.RetryBackoffMax = time.Second }, wantErr: true},
		{name: "success rate above one", mutate: func(c *Config) { c.ProxyMinSuccessRate = 1.5 }, wantErr: true},
		{name: "negative cooldown", mutate: func(c *Config) { c.ProxyCooldown = -time.Minute }, wantErr: true},
		{name: "negative cache ttl", mutate: func(c *Config) { c.CacheTTL = -time.Hour }, wantErr: true},
		{name: "no storage configured", mutate: func(c *Config) { c.DatabaseURL = ""; c.StorePath = "" }, wantErr: true},
		{name: "database url alone suffices", mutate: func(c *Config) { c.StorePath = ""; c.DatabaseURL = "postgres://localhost/olx" }, wantErr: false},
		{name: "zero histogram bins", mutate: func(c *Config) { c.HistogramBins = 0 }, wantErr: true},
		{name: "empty user agent pool", mutate: func(c *Config) { c.UserAgents = nil }, wantErr: true},
		{name: "blank user agent entry", mutate: func(c *Config) { c.UserAgents = []string{"ok", ""} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnvOverlaysValues(t *testing.T) {
	t.Setenv("BASE_URL", "https://staging.olx.test")
	t.Setenv("REGION", "estado-sp")
	t.Setenv("MIN_PRICE", "75.5")
	t.Setenv("DEFAULT_PAGES", "5")
	t.Setenv("TIMEOUT", "30")
	t.Setenv("PROXIES", "http://p1:8080, http://p2:8080 ,")
	t.Setenv("TRIM_OUTLIERS", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := DefaultConfig()
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.BaseURL != "https://staging.olx.test" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Region != "estado-sp" {
		t.Errorf("region = %q", cfg.Region)
	}
	if cfg.MinPrice != 75.5 {
		t.Errorf("min price = %v", cfg.MinPrice)
	}
	if cfg.MaxPages != 5 {
		t.Errorf("max pages = %d", cfg.MaxPages)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if len(cfg.Proxies) != 2 || cfg.Proxies[0] != "http://p1:8080" || cfg.Proxies[1] != "http://p2:8080" {
		t.Errorf("proxies = %v", cfg.Proxies)
	}
	if cfg.TrimOutliers {
		t.Error("trim outliers should be disabled")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.RedisAddr)
	}
}

func TestFromEnvLeavesUnsetValuesAlone(t *testing.T) {
	cfg := DefaultConfig()
	want := cfg.MaxPages
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.MaxPages != want {
		t.Errorf("max pages changed without an env var: %d", cfg.MaxPages)
	}
}

func TestFromEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("DEFAULT_PAGES", "not-a-number")

	cfg := DefaultConfig()
	if err := cfg.FromEnv(); err == nil {
		t.Fatal("expected error for malformed DEFAULT_PAGES")
	}
}
