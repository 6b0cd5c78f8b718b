package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "BROWSER_MAX_TABS", "DEFAULT_ENGINE_TIMEOUT", "LOG_LEVEL")
	c := Load()
	if c.BrowserMaxTabs != 4 {
		t.Fatalf("expected default max tabs 4, got %d", c.BrowserMaxTabs)
	}
	if c.DefaultEngineTimeout != 5*time.Second {
		t.Fatalf("expected default timeout 5s, got %v", c.DefaultEngineTimeout)
	}
	if c.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", c.LogLevel)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t, "BROWSER_MAX_TABS")
	os.Setenv("BROWSER_MAX_TABS", "8")
	c := Load()
	if c.BrowserMaxTabs != 8 {
		t.Fatalf("expected max tabs 8, got %d", c.BrowserMaxTabs)
	}
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	clearEnv(t, "BROWSER_MAX_TABS")
	os.Setenv("BROWSER_MAX_TABS", "not-a-number")
	c := Load()
	if c.BrowserMaxTabs != 4 {
		t.Fatalf("expected fallback to default max tabs, got %d", c.BrowserMaxTabs)
	}
}

func TestValidate_ClampsOversizedBrowserMaxTabs(t *testing.T) {
	c := &Config{BrowserMaxTabs: 999, MaxMemoryMB: 2048, DefaultEngineTimeout: 5 * time.Second, MaxEngineTimeout: 60 * time.Second, BrowserPoolTimeout: 30 * time.Second, LogLevel: "info"}
	c.Validate()
	if c.BrowserMaxTabs != maxBrowserPoolSize {
		t.Fatalf("expected clamp to %d, got %d", maxBrowserPoolSize, c.BrowserMaxTabs)
	}
}

func TestValidate_CorrectsInvalidLogLevel(t *testing.T) {
	c := &Config{LogLevel: "bogus", BrowserMaxTabs: 4, MaxMemoryMB: 2048, DefaultEngineTimeout: 5 * time.Second, MaxEngineTimeout: 60 * time.Second, BrowserPoolTimeout: 30 * time.Second}
	c.Validate()
	if c.LogLevel != "info" {
		t.Fatalf("expected correction to info, got %q", c.LogLevel)
	}
}

func TestValidate_DefaultTimeoutCappedToMax(t *testing.T) {
	c := &Config{
		BrowserMaxTabs:       4,
		MaxMemoryMB:          2048,
		DefaultEngineTimeout: 90 * time.Second,
		MaxEngineTimeout:     30 * time.Second,
		BrowserPoolTimeout:   30 * time.Second,
		LogLevel:             "info",
	}
	c.Validate()
	if c.DefaultEngineTimeout != 30*time.Second {
		t.Fatalf("expected default timeout adjusted to max, got %v", c.DefaultEngineTimeout)
	}
}

func TestValidate_SelectorsHotReloadWithoutPathDisabled(t *testing.T) {
	c := &Config{
		BrowserMaxTabs:       4,
		MaxMemoryMB:          2048,
		DefaultEngineTimeout: 5 * time.Second,
		MaxEngineTimeout:     60 * time.Second,
		BrowserPoolTimeout:   30 * time.Second,
		LogLevel:             "info",
		SelectorsHotReload:   true,
	}
	c.Validate()
	if c.SelectorsHotReload {
		t.Fatal("expected hot-reload to be disabled without a selectors path")
	}
}

func TestValidate_WarnsOnProxyCredentialMismatch(t *testing.T) {
	c := &Config{
		BrowserMaxTabs:       4,
		MaxMemoryMB:          2048,
		DefaultEngineTimeout: 5 * time.Second,
		MaxEngineTimeout:     60 * time.Second,
		BrowserPoolTimeout:   30 * time.Second,
		LogLevel:             "info",
		ProxyURL:             "http://proxy.example.com:8080",
		ProxyUsername:        "user",
	}
	c.Validate()
	if c.ProxyUsername != "user" {
		t.Fatalf("expected ProxyUsername to be left unchanged, got %q", c.ProxyUsername)
	}
}

func TestHasDefaultProxy(t *testing.T) {
	c := &Config{}
	if c.HasDefaultProxy() {
		t.Fatal("expected no default proxy")
	}
	c.ProxyURL = "socks5://example:1080"
	if !c.HasDefaultProxy() {
		t.Fatal("expected default proxy to be set")
	}
}
