package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kurohana/kurohana/internal/apiclient"
	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/internal/metrics"
	"github.com/kurohana/kurohana/internal/predict"
	"github.com/kurohana/kurohana/pkg/bus"
)

// maxBodyBytes caps the size of a prediction request body.
const maxBodyBytes = 64 << 10

// StatusSource provides the poller status. *health.Poller implements it.
type StatusSource interface {
	Status() health.Status
}

// LogSource provides the activity-log window. *logpanel.Panel implements it.
type LogSource interface {
	Entries() []bus.Entry
}

// Predictor validates form values and calls the prediction service.
// *predict.Service implements it.
type Predictor interface {
	Engine(ctx context.Context, values map[string]string) (*predict.EngineResult, error)
	Naval(ctx context.Context, values map[string]string) (*predict.NavalResult, error)
}

// CounterSource summarises the dashboard's own metrics. *metrics.Metrics implements it.
type CounterSource interface {
	Totals() (metrics.Totals, error)
}

// Deps are the collaborators the Handler reads from. Counters is optional.
type Deps struct {
	Status    StatusSource
	Logs      LogSource
	Predictor Predictor
	Counters  CounterSource
	APIBase   string
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a Handler wired to d and registers all routes.
func New(d Deps) http.Handler {
	h := &Handler{deps: d, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/status", h.status)
	h.mux.HandleFunc("/api/v1/logs", h.logs)
	h.mux.HandleFunc("/api/v1/forms/", h.form)       // subtree, extracts {kind}
	h.mux.HandleFunc("/api/v1/predict/", h.predict) // subtree, extracts {kind}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// status returns GET /api/v1/status: snapshot, raw observations and hints.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildStatus(h.deps.Status, h.deps.APIBase, h.deps.Counters))
}

// logs returns GET /api/v1/logs: the activity-log window, newest first.
func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildLogs(h.deps.Logs.Entries()))
}

// form returns GET /api/v1/forms/{engine,naval}: field catalogue and presets.
func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch strings.TrimPrefix(r.URL.Path, "/api/v1/forms/") {
	case predict.EngineForm.Kind:
		jsonResp(w, http.StatusOK, predict.EngineForm.View())
	case predict.NavalForm.Kind:
		jsonResp(w, http.StatusOK, predict.NavalForm.View())
	default:
		jsonErr(w, http.StatusNotFound, "form not found")
	}
}

// predict handles POST /api/v1/predict/{engine,naval}.
func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind := strings.TrimPrefix(r.URL.Path, "/api/v1/predict/")
	if kind != predict.EngineForm.Kind && kind != predict.NavalForm.Kind {
		jsonErr(w, http.StatusNotFound, "predictor not found")
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		result any
		err    error
	)
	switch kind {
	case predict.EngineForm.Kind:
		values, ok := presetValues(predict.EngineForm, req)
		if !ok {
			jsonErr(w, http.StatusBadRequest, "unknown preset")
			return
		}
		result, err = h.deps.Predictor.Engine(r.Context(), values)
	case predict.NavalForm.Kind:
		values, ok := presetValues(predict.NavalForm, req)
		if !ok {
			jsonErr(w, http.StatusBadRequest, "unknown preset")
			return
		}
		result, err = h.deps.Predictor.Naval(r.Context(), values)
	}
	if err != nil {
		predictErr(w, kind, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

// --- builders shared with the stream hub ------------------------------------

// BuildStatus assembles the status payload. counters may be nil.
func BuildStatus(src StatusSource, apiBase string, counters CounterSource) StatusResponse {
	st := src.Status()
	resp := StatusResponse{
		Snapshot:  st.Snapshot,
		APIBase:   apiBase,
		APIStatus: apiStatusLabel(st),
		LastError: st.LastError,
		Artifacts: ArtifactsView{
			Engine: artifactLabel(st.Snapshot.Engine),
			Naval:  artifactLabel(st.Snapshot.Naval),
		},
		Polls:       st.Polls,
		Diagnostics: computeDiagnostics(st, apiBase),
	}
	if !st.CheckedAt.IsZero() {
		resp.CheckedAt = st.CheckedAt.UTC().Format(time.RFC3339)
	}
	if counters != nil {
		if totals, err := counters.Totals(); err == nil {
			resp.Counters = &totals
		} else {
			slog.Warn("api: gather counters failed", "err", err)
		}
	}
	return resp
}

// BuildLogs maps bus entries to their JSON representation, preserving order.
func BuildLogs(entries []bus.Entry) []LogEntryResponse {
	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToLogEntry(e))
	}
	return out
}

// ToLogEntry maps one bus entry.
func ToLogEntry(e bus.Entry) LogEntryResponse {
	return LogEntryResponse{
		ID:        e.ID,
		Level:     string(e.Level),
		Text:      e.Text,
		Timestamp: e.Timestamp,
		Time:      e.Time().Format(time.TimeOnly),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// predictErr maps the three failure kinds to HTTP statuses.
func predictErr(w http.ResponseWriter, kind string, err error) {
	var (
		verr *predict.ValidationError
		aerr *apiclient.APIError
		nerr *apiclient.NetworkError
	)
	switch {
	case errors.As(err, &verr):
		jsonResp(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &aerr):
		jsonResp(w, http.StatusBadGateway, errorResponse{Error: aerr.Message, UpstreamStatus: aerr.StatusCode})
	case errors.As(err, &nerr):
		jsonErr(w, http.StatusServiceUnavailable, "prediction service unreachable: "+nerr.Err.Error())
	default:
		slog.Error("api: prediction failed", "kind", kind, "err", err)
		jsonErr(w, http.StatusInternalServerError, "Unable to predict")
	}
}

// presetValues returns req.Values, or the named preset's values when Values
// is empty. ok is false for an unknown preset.
func presetValues[T any](f *predict.Form[T], req PredictRequest) (map[string]string, bool) {
	if len(req.Values) > 0 || req.Preset == "" {
		return req.Values, true
	}
	p, ok := f.Preset(req.Preset)
	if !ok {
		return nil, false
	}
	return f.Strings(p.Values), true
}

// apiStatusLabel mirrors the status panel: "unreachable" after a failed
// poll, else the raw status text, else "checking".
func apiStatusLabel(st health.Status) string {
	switch {
	case st.LastError != "":
		return "unreachable"
	case st.RawStatus != "":
		return st.RawStatus
	default:
		return "checking"
	}
}
