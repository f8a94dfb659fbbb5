// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for senderwatch.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total, http_request_duration_seconds
//
// Mailbox API (operation, status):
//   - mailbox_api_operations_total
//   - mailbox_api_operation_duration_seconds
//
// Analytics (backend, status):
//   - analytics_queries_total
//   - analytics_query_duration_seconds
//
// Consistency:
//   - optimistic_rollbacks_total (kind)
//   - mutation_conflicts_total (entity)
//   - notifications_total (operation, outcome)
//   - api_retries_total (api)
//
// MCP tools:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are named tool.<name>, mailbox.<operation> and analytics.query_counts.
// Sender addresses never appear on spans in clear text.
//
// # Configuration
//
// DefaultConfig reads the environment:
//   - SENDERWATCH_TELEMETRY_ENABLED: export metrics and traces (default: true)
//   - SENDERWATCH_METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - SENDERWATCH_TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - SENDERWATCH_METRICS_ACCOUNT_LABEL: add the account to tool metrics
//   - SENDERWATCH_AUDIT_LOG, SENDERWATCH_AUDIT_LOG_ADDRESSES: tool audit log and full addresses in it
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE, OTEL_TRACES_SAMPLER_ARG, OTEL_SERVICE_NAME
//
// The serve command adds the account and analytics backend, which are
// exported as the senderwatch.account.domain and
// senderwatch.analytics.backend resource attributes.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordMailboxOperation(ctx, instrumentation.OperationTrash, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
