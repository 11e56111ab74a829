package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	clearEnv(t)
	yaml := `
client:
  api_base: "http://models.internal:9000"
  request_timeout: 3s
  poll_interval: 5s
  tls:
    insecure_skip_verify: true
server:
  http_port: 9090
  broadcast_interval: 2s
  log_window: 25
  log_level: debug
`
	cfg := loadFromString(t, yaml)

	if cfg.Client.APIBase != "http://models.internal:9000" {
		t.Errorf("api_base: got %q", cfg.Client.APIBase)
	}
	if cfg.Client.RequestTimeout != 3*time.Second {
		t.Errorf("request_timeout: got %v", cfg.Client.RequestTimeout)
	}
	if cfg.Client.PollInterval != 5*time.Second {
		t.Errorf("poll_interval: got %v", cfg.Client.PollInterval)
	}
	if !cfg.Client.TLS.InsecureSkipVerify {
		t.Error("tls.insecure_skip_verify: got false")
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("http_port: got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.LogWindow != 25 {
		t.Errorf("log_window: got %d", cfg.Server.LogWindow)
	}
	if cfg.Server.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v", cfg.Server.SlogLevel())
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := loadFromString(t, "server:\n  http_port: 8081\n")

	if cfg.Client.APIBase != DefaultAPIBase {
		t.Errorf("default api_base: got %q, want %q", cfg.Client.APIBase, DefaultAPIBase)
	}
	if cfg.Client.PollInterval != DefaultPollInterval {
		t.Errorf("default poll_interval: got %v, want %v", cfg.Client.PollInterval, DefaultPollInterval)
	}
	if cfg.Client.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("default request_timeout: got %v, want %v", cfg.Client.RequestTimeout, DefaultRequestTimeout)
	}
	if cfg.Server.LogWindow != DefaultLogWindow {
		t.Errorf("default log_window: got %d, want %d", cfg.Server.LogWindow, DefaultLogWindow)
	}
	if cfg.Server.BroadcastInterval != DefaultBroadcastInterval {
		t.Errorf("default broadcast_interval: got %v", cfg.Server.BroadcastInterval)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Client.APIBase != DefaultAPIBase {
		t.Errorf("api_base: got %q", cfg.Client.APIBase)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE", "https://predict.example.com/")
	t.Setenv("KUROHANA_POLL_INTERVAL", "30s")
	t.Setenv("KUROHANA_HTTP_PORT", "7000")
	t.Setenv("KUROHANA_LOG_LEVEL", "warn")

	cfg := loadFromString(t, `
client:
  api_base: "http://from-file:8000"
  poll_interval: 5s
server:
  http_port: 9090
`)

	// Trailing slash is trimmed so paths can be appended directly.
	if cfg.Client.APIBase != "https://predict.example.com" {
		t.Errorf("api_base: got %q", cfg.Client.APIBase)
	}
	if cfg.Client.PollInterval != 30*time.Second {
		t.Errorf("poll_interval: got %v", cfg.Client.PollInterval)
	}
	if cfg.Server.HTTPPort != 7000 {
		t.Errorf("http_port: got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("log_level: got %q", cfg.Server.LogLevel)
	}
}

func TestLoad_BadEnvDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("KUROHANA_POLL_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unparseable KUROHANA_POLL_INTERVAL, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	if _, err := loadStringErr(t, "client: [not, a, map"); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	clearEnv(t)
	_, err := loadStringErr(t, `
client:
  api_base: "ftp://nope"
  poll_interval: -1s
server:
  http_port: 70000
  log_window: 0
  log_level: loud
`)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{
		"client.api_base",
		"client.poll_interval",
		"server.http_port",
		"server.log_window",
		"server.log_level",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_APIBaseMustBeAbsolute(t *testing.T) {
	tests := []struct {
		name string
		base string
		ok   bool
	}{
		{"http", "http://localhost:8000", true},
		{"https", "https://models.example.com", true},
		{"relative", "/api", false},
		{"no scheme", "localhost:8000", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			_, err := loadStringErr(t, "client:\n  api_base: \""+tc.base+"\"\n")
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWatch_CallsOnChange(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "server:\n  log_window: 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	go Watch(ctx, path, func(c *Config) { changed <- c }) //nolint:errcheck

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "server:\n  log_window: 20\n")

	// A truncate-then-write may surface as two events; wait for the final content.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Server.LogWindow == 20 {
				return
			}
		case <-deadline:
			t.Fatal("onChange was not called with the new config")
		}
	}
}

// --- helpers ----------------------------------------------------------------

// clearEnv removes every override variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"API_BASE", "KUROHANA_POLL_INTERVAL", "KUROHANA_HTTP_PORT", "KUROHANA_LOG_LEVEL"} {
		t.Setenv(k, "") // registers restore on cleanup
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return Load(path)
}
