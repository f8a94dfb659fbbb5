// Package server provides the MCP server context and the operational HTTP
// endpoints of senderwatch.
//
// ServerContext owns the orchestrator of the configured mailbox, the
// optional refresh scheduler and every resource that must be released on
// shutdown (analytics connections, notification publishers).
//
// MetricsServer serves Prometheus metrics on a dedicated port together with
// the HealthChecker probes:
//   - /healthz: liveness
//   - /readyz: readiness, including the analytics backend in use
//   - /healthz/detailed: uptime and refresh schedule
package server
