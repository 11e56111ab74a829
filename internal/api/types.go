package api

import (
	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/internal/metrics"
)

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Snapshot    health.Snapshot  `json:"snapshot"`
	APIBase     string           `json:"api_base"`
	APIStatus   string           `json:"api_status"` // raw status text, "checking" or "unreachable"
	LastError   string           `json:"last_error,omitempty"`
	Artifacts   ArtifactsView    `json:"artifacts"`
	CheckedAt   string           `json:"checked_at,omitempty"` // RFC3339
	Polls       int              `json:"polls"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
	Counters    *metrics.Totals  `json:"counters,omitempty"`
}

// ArtifactsView labels each model family "ready" or "pending".
type ArtifactsView struct {
	Engine string `json:"engine"`
	Naval  string `json:"naval"`
}

// LogEntryResponse is one activity-log line in GET /api/v1/logs.
type LogEntryResponse struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	Time      string `json:"time"`      // HH:MM:SS, server local time
}

// PredictRequest is the body for POST /api/v1/predict/{engine,naval}.
// Values holds raw form strings keyed by field name. When Values is empty
// and Preset names a preset, the preset's values are used.
type PredictRequest struct {
	Preset string            `json:"preset,omitempty"`
	Values map[string]string `json:"values"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error          string `json:"error"`
	Field          string `json:"field,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}
