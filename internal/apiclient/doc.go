// Package apiclient is the single HTTP entry point to the remote prediction
// service. Every call is one request/response cycle: JSON in, JSON out, no
// retries.
//
// Failures are returned as *NetworkError (no response) or *APIError (non-2xx)
// and are also published to the event bus, so the activity log shows them
// even when the caller only surfaces a short message. Successful POSTs publish
// an info entry; successful GETs stay quiet because the health poller issues
// them on a timer.
//
// endpoints.go holds the typed request/response shapes for /health,
// /predict/engine and /predict/naval.
package apiclient
