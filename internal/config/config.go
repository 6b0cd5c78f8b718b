// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Configuration upper bounds to prevent resource exhaustion.
const (
	maxBrowserPoolSize = 20
	maxMaxMemoryMB     = 16384
	maxTimeout         = 10 * time.Minute
)

// Config holds all application configuration. Loaded from environment
// variables at startup and layered under the CLI's own flags, which take
// precedence when explicitly set.
type Config struct {
	// Browser pool settings
	Headless        bool
	BrowserPath     string
	BrowserMaxTabs  int
	BrowserPoolTimeout time.Duration
	MaxMemoryMB     int

	// Timeouts
	DefaultEngineTimeout time.Duration
	MaxEngineTimeout     time.Duration

	// Proxy defaults
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	IgnoreCertErrors bool

	// Logging
	LogLevel string

	// Selectors settings
	SelectorsPath      string
	SelectorsHotReload bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Headless:           getEnvBool("HEADLESS", true),
		BrowserPath:        getEnvString("BROWSER_PATH", ""),
		BrowserMaxTabs:     getEnvInt("BROWSER_MAX_TABS", 4),
		BrowserPoolTimeout: getEnvDuration("BROWSER_POOL_TIMEOUT", 30*time.Second),
		MaxMemoryMB:        getEnvInt("MAX_MEMORY_MB", 2048),

		DefaultEngineTimeout: getEnvDuration("DEFAULT_ENGINE_TIMEOUT", 5*time.Second),
		MaxEngineTimeout:     getEnvDuration("MAX_ENGINE_TIMEOUT", 60*time.Second),

		ProxyURL:         getEnvString("PROXY_URL", ""),
		ProxyUsername:    getEnvString("PROXY_USERNAME", ""),
		ProxyPassword:    getEnvString("PROXY_PASSWORD", ""),
		IgnoreCertErrors: getEnvBool("IGNORE_CERT_ERRORS", false),

		LogLevel: getEnvString("LOG_LEVEL", "info"),

		SelectorsPath:      getEnvString("SELECTORS_PATH", ""),
		SelectorsHotReload: getEnvBool("SELECTORS_HOT_RELOAD", false),
	}
}

// HasDefaultProxy returns true if a default proxy is configured.
func (c *Config) HasDefaultProxy() bool {
	return c.ProxyURL != ""
}

// Validate checks configuration values and logs warnings for invalid
// values. Invalid values are corrected to sensible defaults rather than
// causing a hard failure.
func (c *Config) Validate() {
	if c.BrowserPath != "" {
		if strings.Contains(c.BrowserPath, "..") {
			log.Error().Str("path", c.BrowserPath).Msg("BrowserPath contains path traversal sequence (..), ignoring")
			c.BrowserPath = ""
		} else if !strings.HasPrefix(c.BrowserPath, "/") && !strings.HasPrefix(c.BrowserPath, "C:") && !strings.HasPrefix(c.BrowserPath, "c:") {
			log.Warn().Str("path", c.BrowserPath).Msg("BrowserPath should be an absolute path")
		}
	}

	if c.BrowserMaxTabs < 1 {
		log.Warn().Int("max_tabs", c.BrowserMaxTabs).Msg("Invalid browser max tabs, using default 4")
		c.BrowserMaxTabs = 4
	} else if c.BrowserMaxTabs > maxBrowserPoolSize {
		log.Warn().Int("max_tabs", c.BrowserMaxTabs).Int("max", maxBrowserPoolSize).Msg("Browser max tabs too large, capping to maximum")
		c.BrowserMaxTabs = maxBrowserPoolSize
	}

	if c.MaxMemoryMB < 256 {
		log.Warn().Int("mb", c.MaxMemoryMB).Msg("Memory limit too low, using default 2048")
		c.MaxMemoryMB = 2048
	} else if c.MaxMemoryMB > maxMaxMemoryMB {
		log.Warn().Int("mb", c.MaxMemoryMB).Int("max", maxMaxMemoryMB).Msg("Memory limit too high, capping to maximum")
		c.MaxMemoryMB = maxMaxMemoryMB
	}

	if c.MaxEngineTimeout < time.Second {
		log.Warn().Dur("timeout", c.MaxEngineTimeout).Msg("Max engine timeout too short, using 60s")
		c.MaxEngineTimeout = 60 * time.Second
	}
	if c.MaxEngineTimeout > maxTimeout {
		log.Warn().Dur("timeout", c.MaxEngineTimeout).Dur("max", maxTimeout).Msg("Max engine timeout too high, capping to maximum")
		c.MaxEngineTimeout = maxTimeout
	}
	if c.DefaultEngineTimeout < time.Second {
		log.Warn().Dur("timeout", c.DefaultEngineTimeout).Msg("Default engine timeout too short, using 5s")
		c.DefaultEngineTimeout = 5 * time.Second
	}
	if c.DefaultEngineTimeout > c.MaxEngineTimeout {
		log.Warn().Dur("default", c.DefaultEngineTimeout).Dur("max", c.MaxEngineTimeout).Msg("Default engine timeout exceeds max, adjusting to max")
		c.DefaultEngineTimeout = c.MaxEngineTimeout
	}

	const minPoolTimeout = 1 * time.Second
	const maxPoolTimeout = 5 * time.Minute
	if c.BrowserPoolTimeout < minPoolTimeout {
		log.Warn().Dur("timeout", c.BrowserPoolTimeout).Dur("min", minPoolTimeout).Msg("Browser pool timeout too short, using minimum")
		c.BrowserPoolTimeout = minPoolTimeout
	} else if c.BrowserPoolTimeout > maxPoolTimeout {
		log.Warn().Dur("timeout", c.BrowserPoolTimeout).Dur("max", maxPoolTimeout).Msg("Browser pool timeout too long, using maximum")
		c.BrowserPoolTimeout = maxPoolTimeout
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("level", c.LogLevel).Msg("Invalid log level, using 'info'")
		c.LogLevel = "info"
	}

	if c.IgnoreCertErrors {
		if c.ProxyURL == "" {
			log.Warn().Msg("WARNING: IGNORE_CERT_ERRORS enabled without a proxy - this exposes you to MITM attacks")
		} else {
			log.Info().Msg("IGNORE_CERT_ERRORS enabled for proxy compatibility")
		}
	}

	if c.ProxyURL != "" {
		if !strings.Contains(c.ProxyURL, "://") {
			log.Error().Str("proxy_url", c.ProxyURL).Msg("ProxyURL missing scheme (should be http://, https://, or socks5://)")
		} else {
			scheme := strings.ToLower(strings.Split(c.ProxyURL, "://")[0])
			validSchemes := map[string]bool{"http": true, "https": true, "socks5": true}
			if !validSchemes[scheme] {
				log.Error().Str("proxy_url", c.ProxyURL).Str("scheme", scheme).Msg("ProxyURL has invalid scheme (must be http, https, or socks5)")
			}
			if strings.Contains(c.ProxyURL, "@") {
				log.Warn().Msg("ProxyURL contains embedded credentials (@) - use PROXY_USERNAME and PROXY_PASSWORD instead")
			}
		}
	}

	if c.ProxyUsername != "" && c.ProxyPassword == "" {
		log.Warn().Msg("PROXY_USERNAME set but PROXY_PASSWORD is empty - credentials will be omitted")
	}
	if c.ProxyPassword != "" && c.ProxyUsername == "" {
		log.Warn().Msg("PROXY_PASSWORD set but PROXY_USERNAME is empty - credentials will be omitted")
	}
	if (c.ProxyUsername != "" || c.ProxyPassword != "") && c.ProxyURL == "" {
		log.Warn().Msg("Proxy credentials set but PROXY_URL is empty - credentials will not be used")
	}
	if (c.ProxyUsername != "" || c.ProxyPassword != "") && c.ProxyURL != "" && strings.HasPrefix(strings.ToLower(c.ProxyURL), "http://") {
		log.Warn().Msg("WARNING: Proxy credentials over HTTP - credentials may be intercepted. Consider using HTTPS or SOCKS5")
	}

	if c.SelectorsPath != "" {
		if strings.Contains(c.SelectorsPath, "..") {
			log.Error().Str("path", c.SelectorsPath).Msg("SelectorsPath contains path traversal sequence (..), ignoring")
			c.SelectorsPath = ""
		} else if !strings.HasPrefix(c.SelectorsPath, "/") && !strings.HasPrefix(c.SelectorsPath, "C:") && !strings.HasPrefix(c.SelectorsPath, "c:") {
			log.Warn().Str("path", c.SelectorsPath).Msg("SelectorsPath should be an absolute path")
		}
		if c.SelectorsHotReload {
			if _, err := os.Stat(c.SelectorsPath); os.IsNotExist(err) {
				log.Warn().Str("path", c.SelectorsPath).Msg("SelectorsPath does not exist - hot-reload will watch for file creation")
			}
		}
	}
	if c.SelectorsHotReload && c.SelectorsPath == "" {
		log.Warn().Msg("SELECTORS_HOT_RELOAD enabled but SELECTORS_PATH not set - hot-reload disabled")
		c.SelectorsHotReload = false
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return int(intValue)
		}
		log.Warn().Str("key", key).Str("value", value).Err(err).Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		log.Warn().Str("key", key).Str("value", value).Err(err).Bool("default", defaultValue).
			Msg("Invalid boolean in environment variable, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			if duration > 0 {
				return duration
			}
			log.Warn().Str("key", key).Str("value", value).Dur("default", defaultValue).
				Msg("Duration must be positive, using default")
			return defaultValue
		}
		log.Warn().Str("key", key).Str("value", value).Err(err).Dur("default", defaultValue).
			Msg("Invalid duration in environment variable, using default")
	}
	return defaultValue
}
