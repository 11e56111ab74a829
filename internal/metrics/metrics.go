package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/pkg/bus"
)

const namespace = "kurohana"

// Metric family names, exported for tests and the status endpoint.
const (
	FamilyBusEntries     = namespace + "_bus_entries_total"
	FamilyAPIRequests    = namespace + "_api_requests_total"
	FamilyHealthPolls    = namespace + "_health_polls_total"
	FamilyTransitions    = namespace + "_health_transitions_total"
	FamilySubsystemState = namespace + "_subsystem_state"
	FamilyStreamClients  = namespace + "_stream_clients"
)

var allStates = []health.State{health.StateChecking, health.StateOnline, health.StateOffline}

// Metrics owns a registry and the dashboard's collectors.
// All methods are safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	busEntries     *prometheus.CounterVec
	apiRequests    *prometheus.CounterVec
	healthPolls    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	subsystemState *prometheus.GaugeVec
	streamClients  prometheus.Gauge
}

// New creates a Metrics with every collector registered, plus the Go runtime
// and process collectors. Subsystem gauges start in the checking state.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		busEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_entries_total",
			Help:      "Activity-log entries published on the event bus.",
		}, []string{"level"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests sent to the prediction service.",
		}, []string{"method", "outcome"}),
		healthPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_polls_total",
			Help:      "Applied /health polls.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_transitions_total",
			Help:      "Subsystem state transitions.",
		}, []string{"subsystem", "state"}),
		subsystemState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subsystem_state",
			Help:      "1 for the current state of each subsystem, 0 otherwise.",
		}, []string{"subsystem", "state"}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected WebSocket stream clients.",
		}),
	}

	m.reg.MustRegister(
		m.busEntries,
		m.apiRequests,
		m.healthPolls,
		m.transitions,
		m.subsystemState,
		m.streamClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.setSnapshot(health.InitialSnapshot())
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Attach counts every entry published on b until the returned func is called.
func (m *Metrics) Attach(b *bus.Bus) (detach func()) {
	return b.Subscribe(func(e bus.Entry) {
		m.busEntries.WithLabelValues(string(e.Level)).Inc()
	})
}

// ReportRequest matches the apiclient reporter hook.
func (m *Metrics) ReportRequest(method, outcome string) {
	m.apiRequests.WithLabelValues(method, outcome).Inc()
}

// ObservePoll matches the health.Observer hook.
func (m *Metrics) ObservePoll(outcome string, snap health.Snapshot, transitions []health.Transition) {
	m.healthPolls.WithLabelValues(outcome).Inc()
	for _, t := range transitions {
		m.transitions.WithLabelValues(t.Subsystem, string(t.To)).Inc()
	}
	m.setSnapshot(snap)
}

// SetStreamClients records the number of connected stream clients.
func (m *Metrics) SetStreamClients(n int) {
	m.streamClients.Set(float64(n))
}

func (m *Metrics) setSnapshot(snap health.Snapshot) {
	for _, name := range health.Subsystems {
		current := snap.Get(name)
		for _, st := range allStates {
			v := 0.0
			if st == current {
				v = 1
			}
			m.subsystemState.WithLabelValues(name, string(st)).Set(v)
		}
	}
}

// Totals is a plain summary of the counters.
type Totals struct {
	BusEntries     float64 `json:"bus_entries"`
	BusErrors      float64 `json:"bus_errors"`
	APIRequests    float64 `json:"api_requests"`
	APIFailures    float64 `json:"api_failures"`
	HealthPolls    float64 `json:"health_polls"`
	HealthFailures float64 `json:"health_failures"`
	Transitions    float64 `json:"transitions"`
}

// Totals gathers the registry and sums each family.
func (m *Metrics) Totals() (Totals, error) {
	mfs, err := m.reg.Gather()
	if err != nil {
		return Totals{}, fmt.Errorf("metrics: gather: %w", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		byName[mf.GetName()] = mf
	}

	return Totals{
		BusEntries:     sumFamily(byName[FamilyBusEntries], nil),
		BusErrors:      sumFamily(byName[FamilyBusEntries], labelIs("level", string(bus.LevelError))),
		APIRequests:    sumFamily(byName[FamilyAPIRequests], nil),
		APIFailures:    sumFamily(byName[FamilyAPIRequests], labelIn("outcome", "network_error", "api_error")),
		HealthPolls:    sumFamily(byName[FamilyHealthPolls], nil),
		HealthFailures: sumFamily(byName[FamilyHealthPolls], labelIs("outcome", "failure")),
		Transitions:    sumFamily(byName[FamilyTransitions], nil),
	}, nil
}

// sumFamily adds up the counter, gauge or untyped values in mf whose labels
// satisfy keep (all of them when keep is nil). A nil mf sums to 0.
func sumFamily(mf *dto.MetricFamily, keep func(*dto.Metric) bool) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		if keep != nil && !keep(m) {
			continue
		}
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}

func labelIs(name, value string) func(*dto.Metric) bool {
	return labelIn(name, value)
}

func labelIn(name string, values ...string) func(*dto.Metric) bool {
	return func(m *dto.Metric) bool {
		for _, lp := range m.GetLabel() {
			if lp.GetName() != name {
				continue
			}
			for _, v := range values {
				if lp.GetValue() == v {
					return true
				}
			}
		}
		return false
	}
}
