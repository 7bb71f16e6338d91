package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const validYAML = `
telegram:
  token: "123:abc"
  default_chat_id: "-100555"
  webhook_secret: "whk"
  menu:
    add_url: "https://example.com/index.html"
    search_url: "https://example.com/search.html"
http:
  addr: ":9090"
storage:
  path: "/tmp/events.db"
rate_limit:
  ceiling: 7
  period: "30s"
render:
  timezone: "UTC"
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bot.yaml", validYAML)
	cfg, err := NewManager(path, zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.DefaultChatID != "-100555" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.ListenAddr() != ":9090" {
		t.Fatalf("addr = %q", cfg.ListenAddr())
	}
	if cfg.RateCeiling() != 7 || cfg.RatePeriod() != 30*time.Second {
		t.Fatalf("rate limit = %d / %v", cfg.RateCeiling(), cfg.RatePeriod())
	}
	if cfg.Telegram.Menu.AddURL == "" || cfg.Telegram.Menu.SearchURL == "" {
		t.Fatalf("menu = %+v", cfg.Telegram.Menu)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	if cfg.ListenAddr() != ":8080" {
		t.Fatalf("addr default = %q", cfg.ListenAddr())
	}
	if cfg.RateCeiling() != 5 || cfg.RatePeriod() != 60*time.Second {
		t.Fatalf("rate defaults = %d / %v", cfg.RateCeiling(), cfg.RatePeriod())
	}
	if cfg.DigestSchedule() != "0 9 * * *" || cfg.DigestWindow() != 24*time.Hour {
		t.Fatalf("digest defaults = %q / %v", cfg.DigestSchedule(), cfg.DigestWindow())
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bot.yaml", validYAML+"\nbogus_section:\n  x: 1\n")
	if _, err := NewManager(path, zerolog.Nop()).Load(); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		drop string
	}{
		{name: "token", drop: `token: "123:abc"`},
		{name: "default chat", drop: `default_chat_id: "-100555"`},
		{name: "webhook secret", drop: `webhook_secret: "whk"`},
		{name: "storage path", drop: `path: "/tmp/events.db"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(validYAML, tt.drop, "", 1)
			path := writeConfig(t, "bot.yaml", body)
			if _, err := NewManager(path, zerolog.Nop()).Load(); err == nil {
				t.Fatalf("expected validation error without %s", tt.name)
			}
		})
	}
}

func TestValidateBadDuration(t *testing.T) {
	t.Parallel()
	body := strings.Replace(validYAML, `period: "30s"`, `period: "soon"`, 1)
	path := writeConfig(t, "bot.yaml", body)
	if _, err := NewManager(path, zerolog.Nop()).Load(); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	body := `{
  "telegram": {
    "token": "123:abc",
    "default_chat_id": "-1",
    "webhook_secret": "whk",
    "menu": {"add_url": "https://a", "search_url": "https://s"}
  },
  "http": {},
  "storage": {"path": "/tmp/x.db"},
  "render": {"timezone": "UTC"}
}`
	path := writeConfig(t, "bot.json", body)
	cfg, err := NewManager(path, zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("location = %v, %v", loc, err)
	}
}
