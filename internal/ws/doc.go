// Package ws streams the activity log and service status to browser clients
// over WebSocket at /ws/stream.
//
// On connect a client receives a "logs" message (the current window, newest
// first) followed by a "status" message. Afterwards every bus entry arrives
// as a "log" message, and "status" is pushed whenever the poller reports a
// change and on the broadcast interval.
package ws
