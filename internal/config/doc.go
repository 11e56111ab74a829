// Package config loads and watches the dashboard configuration file.
//
// Top-level types:
//   - Config{Client, Server}: full config tree parsed from YAML
//   - ClientConfig: api_base, request_timeout, poll_interval, tls
//   - ServerConfig: http_port, broadcast_interval, log_window, log_level
//
// Load(path) applies defaults (http://localhost:8000, 10s timeout, 15s poll,
// 40-entry log window, port 8080), parses the file if present, overlays the
// environment (API_BASE, KUROHANA_POLL_INTERVAL, KUROHANA_HTTP_PORT,
// KUROHANA_LOG_LEVEL) and validates everything, reporting all problems in a
// single error.
//
// Watch(ctx, path, onChange) uses fsnotify on the parent directory and calls
// onChange with each successfully reloaded Config.
package config
