package api

import (
	"fmt"
	"strings"

	"github.com/kurohana/kurohana/internal/health"
)

// DiagnosticHint is one human-readable insight about the prediction service.
// The UI shows these as chips next to the status badges.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short chip label.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
}

// computeDiagnostics derives hints from the poller status.
// Ordered: critical first, then warnings, then info.
func computeDiagnostics(st health.Status, apiBase string) []DiagnosticHint {
	snap := st.Snapshot

	if st.Polls == 0 {
		return []DiagnosticHint{{
			Key:   "warming_up",
			Level: "info",
			Title: "Checking service",
			Detail: "The first health check has not completed yet. " +
				"Status badges update as soon as it does.",
		}}
	}

	// ── API reachability ─────────────────────────────────────────────────────
	if snap.API == health.StateOffline {
		if st.LastError != "" {
			return []DiagnosticHint{{
				Key:   "api_unreachable",
				Level: "critical",
				Title: "Service unreachable",
				Detail: fmt.Sprintf(
					"The last health check against %s failed: \"%s\". "+
						"Check that the prediction service is running and that API_BASE points at it. "+
						"Model status below is the last value seen before the failure.",
					apiBase, st.LastError,
				),
			}}
		}
		return []DiagnosticHint{{
			Key:   "api_down",
			Level: "critical",
			Title: "Service reports down",
			Detail: fmt.Sprintf(
				"The service answered but reported status \"%s\". "+
					"Predictions will fail until it recovers.",
				st.RawStatus,
			),
		}}
	}

	var hints []DiagnosticHint

	// ── Artifacts ────────────────────────────────────────────────────────────
	if snap.Engine == health.StateOffline {
		hints = append(hints, artifactHint("engine", st.Artifacts.EngineModel, st.Artifacts.EngineExplainer))
	}
	if snap.Naval == health.StateOffline {
		hints = append(hints, artifactHint("naval", st.Artifacts.NavalModel, st.Artifacts.NavalExplainer))
	}

	// ── Unrecognised status text ─────────────────────────────────────────────
	if snap.API == health.StateChecking {
		hints = append(hints, DiagnosticHint{
			Key:   "status_unrecognised",
			Level: "info",
			Title: "Unrecognised status",
			Detail: fmt.Sprintf(
				"The service reported status \"%s\", which is neither a ready nor a failure word. "+
					"The API badge keeps its previous state until a recognisable status arrives.",
				st.RawStatus,
			),
		})
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: "The service is up and both model families are loaded with their explainers.",
		})
	}
	return hints
}

func artifactHint(family string, model, explainer bool) DiagnosticHint {
	var missing []string
	if !model {
		missing = append(missing, "model")
	}
	if !explainer {
		missing = append(missing, "explainer")
	}
	return DiagnosticHint{
		Key:   family + "_artifacts_pending",
		Level: "warning",
		Title: fmt.Sprintf("%s artifacts pending", strings.ToUpper(family[:1])+family[1:]),
		Detail: fmt.Sprintf(
			"The %s %s not loaded on the service, so %s predictions will be rejected. "+
				"Train or copy the artifacts and restart the service.",
			family, joinMissing(missing), family,
		),
	}
}

func joinMissing(missing []string) string {
	switch len(missing) {
	case 0:
		return "artifacts are"
	case 1:
		return missing[0] + " is"
	default:
		return strings.Join(missing, " and ") + " are"
	}
}

// artifactLabel mirrors the status panel wording.
func artifactLabel(s health.State) string {
	if s == health.StateOnline {
		return "ready"
	}
	return "pending"
}
