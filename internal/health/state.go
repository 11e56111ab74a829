package health

import (
	"fmt"
	"strings"

	"github.com/kurohana/kurohana/internal/apiclient"
	"github.com/kurohana/kurohana/pkg/bus"
)

// State is the last-known readiness of one subsystem.
type State string

// State values. Checking is only ever the initial value.
const (
	StateChecking State = "checking"
	StateOnline   State = "online"
	StateOffline  State = "offline"
)

// Subsystem names, in the order transitions are emitted.
const (
	SubsystemAPI    = "api"
	SubsystemEngine = "engine"
	SubsystemNaval  = "naval"
)

// Subsystems lists every tracked subsystem in emission order.
var Subsystems = []string{SubsystemAPI, SubsystemEngine, SubsystemNaval}

// Tokens matched case-insensitively against the free-text status field.
// Online tokens are checked first.
var (
	onlineTokens  = []string{"ok", "ready", "healthy", "online", "running"}
	offlineTokens = []string{"down", "error", "fail", "offline"}
)

// Snapshot is the readiness of every subsystem at one poll tick.
type Snapshot struct {
	API    State `json:"api"`
	Engine State `json:"engine"`
	Naval  State `json:"naval"`
}

// InitialSnapshot is the snapshot before any poll has completed.
func InitialSnapshot() Snapshot {
	return Snapshot{API: StateChecking, Engine: StateChecking, Naval: StateChecking}
}

// Get returns the state of the named subsystem, or "" for an unknown name.
func (s Snapshot) Get(subsystem string) State {
	switch subsystem {
	case SubsystemAPI:
		return s.API
	case SubsystemEngine:
		return s.Engine
	case SubsystemNaval:
		return s.Naval
	}
	return ""
}

// NormalizeAPIStatus maps a free-text status to a State. An unrecognised
// status returns ok=false and the caller keeps its previous state.
func NormalizeAPIStatus(status string) (s State, ok bool) {
	lower := strings.ToLower(status)
	for _, tok := range onlineTokens {
		if strings.Contains(lower, tok) {
			return StateOnline, true
		}
	}
	for _, tok := range offlineTokens {
		if strings.Contains(lower, tok) {
			return StateOffline, true
		}
	}
	return "", false
}

// Derive builds the next snapshot from a successful health response.
func Derive(prev Snapshot, h *apiclient.HealthResponse) Snapshot {
	next := prev
	if s, ok := NormalizeAPIStatus(h.Status); ok {
		next.API = s
	}
	next.Engine = artifactState(h.EngineModelLoaded, h.EngineExplainerLoaded)
	next.Naval = artifactState(h.NavalModelLoaded, h.NavalExplainerLoaded)
	return next
}

// DeriveFailure builds the next snapshot after a failed health request:
// api goes offline, the other subsystems keep their last-known states.
func DeriveFailure(prev Snapshot) Snapshot {
	next := prev
	next.API = StateOffline
	return next
}

func artifactState(model, explainer bool) State {
	if model && explainer {
		return StateOnline
	}
	return StateOffline
}

// Transition is a state change of one subsystem between two consecutive
// snapshots.
type Transition struct {
	Subsystem string
	From      State
	To        State
}

// Entry returns the bus level and text for t, or ok=false when the
// transition produces no log entry.
func (t Transition) Entry() (level bus.Level, text string, ok bool) {
	name := strings.ToUpper(t.Subsystem)
	switch t.To {
	case StateOnline:
		return bus.LevelInfo, fmt.Sprintf("[health] %s ready", name), true
	case StateOffline:
		return bus.LevelError, fmt.Sprintf("[health] %s offline", name), true
	}
	return "", "", false
}

// Diff compares prev and next field by field in subsystem order.
func Diff(prev, next Snapshot) []Transition {
	var out []Transition
	for _, name := range Subsystems {
		from, to := prev.Get(name), next.Get(name)
		if from != to {
			out = append(out, Transition{Subsystem: name, From: from, To: to})
		}
	}
	return out
}
