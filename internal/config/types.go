// Package config loads and watches the service configuration file.
//
// Files may be YAML or JSON; YAML is coerced to JSON so both formats share
// the same strict decoder (unknown fields are rejected).
package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	HTTP      HTTPConfig      `json:"http"`
	Render    RenderConfig    `json:"render,omitempty"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty"`
	Storage   StorageConfig   `json:"storage"`
	Objects   ObjectsConfig   `json:"objects,omitempty"`
	Digest    DigestConfig    `json:"digest,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

type TelegramConfig struct {
	Token         string `json:"token"`
	DefaultChatID string `json:"default_chat_id"`
	WebhookSecret string `json:"webhook_secret"`

	// APIBaseURL overrides the Bot API endpoint (tests, local proxies).
	APIBaseURL string `json:"api_base_url,omitempty"`

	// Timeout is a Go duration string (e.g. "10s").
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`

	Menu MenuConfig `json:"menu"`
}

// MenuConfig holds the web-app URLs behind the /start menu buttons.
type MenuConfig struct {
	AddURL    string `json:"add_url"`
	SearchURL string `json:"search_url"`
}

type HTTPConfig struct {
	Addr string `json:"addr,omitempty"` // default ":8080"
}

type RenderConfig struct {
	// Timezone is the reference zone for date rendering.
	// Default "Europe/Berlin".
	Timezone string `json:"timezone,omitempty"`
}

type RateLimitConfig struct {
	Ceiling int    `json:"ceiling,omitempty"` // default 5
	Period  string `json:"period,omitempty"`  // Go duration string, default "60s"
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// ObjectsConfig points at the binary object store serving event images.
type ObjectsConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

type DigestConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "0 9 * * *"
	Window   string `json:"window,omitempty"`   // Go duration string, default "24h"
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"` // default "info"
	Console bool   `json:"console,omitempty"`
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("config: telegram.token is required")
	}
	if c.Telegram.DefaultChatID == "" {
		return errors.New("config: telegram.default_chat_id is required")
	}
	if c.Telegram.WebhookSecret == "" {
		return errors.New("config: telegram.webhook_secret is required")
	}
	if c.Storage.Path == "" {
		return errors.New("config: storage.path is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: render.timezone: %w", err)
	}
	for name, raw := range map[string]string{
		"telegram.timeout":     c.Telegram.Timeout,
		"rate_limit.period":    c.RateLimit.Period,
		"storage.busy_timeout": c.Storage.BusyTimeout,
		"objects.timeout":      c.Objects.Timeout,
		"digest.window":        c.Digest.Window,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// Location resolves the reference timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Render.Timezone
	if tz == "" {
		tz = "Europe/Berlin"
	}
	return time.LoadLocation(tz)
}

// Duration parses raw, falling back to def when empty or invalid.
func Duration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (c *Config) ListenAddr() string {
	if c.HTTP.Addr == "" {
		return ":8080"
	}
	return c.HTTP.Addr
}

func (c *Config) RateCeiling() int {
	if c.RateLimit.Ceiling <= 0 {
		return 5
	}
	return c.RateLimit.Ceiling
}

func (c *Config) RatePeriod() time.Duration {
	return Duration(c.RateLimit.Period, 60*time.Second)
}

func (c *Config) DigestSchedule() string {
	if c.Digest.Schedule == "" {
		return "0 9 * * *"
	}
	return c.Digest.Schedule
}

func (c *Config) DigestWindow() time.Duration {
	return Duration(c.Digest.Window, 24*time.Hour)
}
