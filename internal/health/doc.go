// Package health tracks the readiness of the prediction service.
//
// state.go holds the pure parts: NormalizeAPIStatus maps the free-text status
// to a State, Derive/DeriveFailure build the next Snapshot, and Diff lists the
// transitions between two consecutive snapshots.
//
// poller.go provides the stateful Poller. Run polls /health immediately and
// then on a fixed interval; each subsystem transition publishes exactly one
// bus entry ("[health] API ready", "[health] NAVAL offline"), after the
// snapshot update has been applied. Results that arrive after Stop or context
// cancellation are discarded.
//
// States: checking (initial only), online, offline.
package health
