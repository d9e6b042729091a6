// Package api hosts the status HTTP server that runs alongside submit and
// validate. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs and /v1/runs/{run_id} for live run progress.
package api
