package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the immutable configuration snapshot for one run.
type Config struct {
	BaseURL string
	Region  string

	MinPrice float64
	MaxPrice float64

	MaxPages    int
	Parallelism int
	Delay       time.Duration
	RandomDelay time.Duration
	Timeout     time.Duration

	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration

	Proxies             []string
	ProxyMinSuccessRate float64
	ProxyCooldown       time.Duration

	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL string
	StorePath   string

	OutputDir     string
	HistogramBins int
	TrimOutliers  bool

	UserAgents  []string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns conservative defaults for the OLX-style target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             "https://www.olx.com.br",
		Region:              "estado-go",
		MinPrice:            50,
		MaxPrice:            100000,
		MaxPages:            3,
		Parallelism:         4,
		Delay:               200 * time.Millisecond,
		RandomDelay:         300 * time.Millisecond,
		Timeout:             20 * time.Second,
		MaxRetries:          3,
		RetryBackoff:        2 * time.Second,
		RetryBackoffMax:     16 * time.Second,
		ProxyMinSuccessRate: 0.5,
		ProxyCooldown:       5 * time.Minute,
		CacheTTL:            24 * time.Hour,
		StorePath:           "data/listings.jsonl",
		OutputDir:           "results",
		HistogramBins:       20,
		TrimOutliers:        true,
		UserAgents:          defaultUserAgents(),
		Verbose:             false,
	}
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if c.MinPrice < 0 {
		return fmt.Errorf("min price cannot be negative")
	}
	if c.MaxPrice <= c.MinPrice {
		return fmt.Errorf("max price (%.2f) must exceed min price (%.2f)", c.MaxPrice, c.MinPrice)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.ProxyMinSuccessRate < 0 || c.ProxyMinSuccessRate > 1 {
		return fmt.Errorf("proxy min success rate must be between 0 and 1")
	}
	if c.ProxyCooldown < 0 {
		return fmt.Errorf("proxy cooldown cannot be negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	if c.DatabaseURL == "" && c.StorePath == "" {
		return fmt.Errorf("either a database URL or a store path is required")
	}
	if c.HistogramBins <= 0 {
		return fmt.Errorf("histogram bins must be positive")
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("user agent pool cannot be empty")
	}
	for _, ua := range c.UserAgents {
		if ua == "" {
			return fmt.Errorf("user agent pool contains an empty entry")
		}
	}
	return nil
}
