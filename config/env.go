package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString reads a string environment variable.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(name string) (int, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return value, true, nil
}

// EnvFloat reads a float environment variable.
func EnvFloat(name string) (float64, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return value, true, nil
}

// EnvBool reads a boolean environment variable ("true", "1", "yes").
func EnvBool(name string) (bool, bool) {
	raw, ok := EnvString(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true, true
	default:
		return false, true
	}
}

// EnvSeconds reads an integer environment variable expressed in seconds.
func EnvSeconds(name string) (time.Duration, bool, error) {
	value, ok, err := EnvInt(name)
	if err != nil || !ok {
		return 0, ok, err
	}
	return time.Duration(value) * time.Second, true, nil
}

// EnvList reads a comma-separated environment variable, dropping blanks.
func EnvList(name string) ([]string, bool) {
	raw, ok := EnvString(name)
	if !ok {
		return nil, false
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// FromEnv overlays environment variables onto cfg. Unknown or unset
// variables leave the existing value untouched.
func (c *Config) FromEnv() error {
	if v, ok := EnvString("BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := EnvString("REGION"); ok {
		c.Region = v
	}
	if v, ok, err := EnvFloat("MIN_PRICE"); err != nil {
		return err
	} else if ok {
		c.MinPrice = v
	}
	if v, ok, err := EnvFloat("MAX_PRICE"); err != nil {
		return err
	} else if ok {
		c.MaxPrice = v
	}
	if v, ok, err := EnvInt("DEFAULT_PAGES"); err != nil {
		return err
	} else if ok {
		c.MaxPages = v
	}
	if v, ok, err := EnvInt("PARALLELISM"); err != nil {
		return err
	} else if ok {
		c.Parallelism = v
	}
	if v, ok, err := EnvSeconds("TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.Timeout = v
	}
	if v, ok := EnvList("PROXIES"); ok {
		c.Proxies = v
	}
	if v, ok, err := EnvFloat("PROXY_MIN_SUCCESS_RATE"); err != nil {
		return err
	} else if ok {
		c.ProxyMinSuccessRate = v
	}
	if v, ok, err := EnvSeconds("PROXY_COOLDOWN_TIME"); err != nil {
		return err
	} else if ok {
		c.ProxyCooldown = v
	}
	if v, ok, err := EnvSeconds("CACHE_TTL"); err != nil {
		return err
	} else if ok {
		c.CacheTTL = v
	}
	if v, ok := EnvString("REDIS_ADDR"); ok {
		c.RedisAddr = v
	}
	if v, ok := EnvString("REDIS_PASSWORD"); ok {
		c.RedisPassword = v
	}
	if v, ok, err := EnvInt("REDIS_DB"); err != nil {
		return err
	} else if ok {
		c.RedisDB = v
	}
	if v, ok := EnvString("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := EnvString("STORE_PATH"); ok {
		c.StorePath = v
	}
	if v, ok := EnvString("OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok, err := EnvInt("HISTOGRAM_BINS"); err != nil {
		return err
	} else if ok {
		c.HistogramBins = v
	}
	if v, ok := EnvBool("TRIM_OUTLIERS"); ok {
		c.TrimOutliers = v
	}
	if v, ok := EnvString("METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	return nil
}
