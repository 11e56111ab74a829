// Package logpanel keeps the bounded activity-log window shown by the
// dashboard and the console: the most recent entries from the event bus,
// newest first. It holds no history beyond the window.
package logpanel
