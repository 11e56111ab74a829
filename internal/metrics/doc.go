// Package metrics exposes the dashboard's own counters in Prometheus format:
// bus entries by level, API requests by method and outcome, health polls by
// outcome, subsystem transitions and current subsystem states.
//
// Every collector lives on a private registry so tests can create as many
// Metrics as they need. Totals gathers the registry back into plain numbers
// for the status endpoint.
package metrics
