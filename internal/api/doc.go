// Package api implements the dashboard's REST surface under /api/v1/.
//
// Endpoints:
//
//	GET  /api/v1/status              snapshot, raw observations, diagnostic hints
//	GET  /api/v1/logs                activity-log window, newest first
//	GET  /api/v1/forms/{kind}        field catalogue and presets (engine | naval)
//	POST /api/v1/predict/{kind}      validate form values and forward to the service
//
// Prediction failures map to 400 (validation), 502 (service answered with an
// error) and 503 (service unreachable). BuildStatus and BuildLogs are shared
// with the WebSocket hub so both surfaces serialise identically.
package api
