// Package bus is the in-process event bus that carries activity-log entries
// from publishers (the API client, the health poller, config reloads) to
// consumers (the log panel, the WebSocket hub, the terminal console).
//
// New() builds a Bus; main owns it and passes it by pointer. There is no
// package-level bus.
//
// Publish(level, text) stamps the entry with a ULID and a Unix-millisecond
// timestamp and calls every subscriber synchronously, in registration order.
// Subscribe(fn) returns an unsubscribe func; unsubscribing twice is a no-op.
// Duplicate registrations of the same func are delivered twice.
package bus
