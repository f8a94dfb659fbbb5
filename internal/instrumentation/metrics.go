package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrBackend   = "backend"
	attrKind      = "kind"
	attrEntity    = "entity"
	attrOutcome   = "outcome"
	attrAPI       = "api"
	attrTool      = "tool"
	attrAccount   = "account"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a valid no-op recorder, and so is a nil *Metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Mailbox API metrics
	mailboxOperationsTotal   metric.Int64Counter
	mailboxOperationDuration metric.Float64Histogram

	// Analytics metrics
	analyticsQueriesTotal  metric.Int64Counter
	analyticsQueryDuration metric.Float64Histogram

	// Consistency metrics
	rollbacksTotal     metric.Int64Counter
	conflictsTotal     metric.Int64Counter
	notificationsTotal metric.Int64Counter
	retriesTotal       metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.mailboxOperationsTotal, err = meter.Int64Counter(
		"mailbox_api_operations_total",
		metric.WithDescription("Total number of mailbox API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_api_operations_total counter: %w", err)
	}

	m.mailboxOperationDuration, err = meter.Float64Histogram(
		"mailbox_api_operation_duration_seconds",
		metric.WithDescription("Mailbox API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_api_operation_duration_seconds histogram: %w", err)
	}

	m.analyticsQueriesTotal, err = meter.Int64Counter(
		"analytics_queries_total",
		metric.WithDescription("Total number of analytics bucket queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics_queries_total counter: %w", err)
	}

	m.analyticsQueryDuration, err = meter.Float64Histogram(
		"analytics_query_duration_seconds",
		metric.WithDescription("Analytics query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics_query_duration_seconds histogram: %w", err)
	}

	m.rollbacksTotal, err = meter.Int64Counter(
		"optimistic_rollbacks_total",
		metric.WithDescription("Total number of optimistic thread mutations rolled back"),
		metric.WithUnit("{rollback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimistic_rollbacks_total counter: %w", err)
	}

	m.conflictsTotal, err = meter.Int64Counter(
		"mutation_conflicts_total",
		metric.WithDescription("Total number of operations rejected because another was pending"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation_conflicts_total counter: %w", err)
	}

	m.notificationsTotal, err = meter.Int64Counter(
		"notifications_total",
		metric.WithDescription("Total number of user notifications emitted"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications_total counter: %w", err)
	}

	m.retriesTotal, err = meter.Int64Counter(
		"api_retries_total",
		metric.WithDescription("Total number of transient failures retried"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_retries_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMailboxOperation records a mailbox API call.
//
// Parameters:
//   - operation: create_filter, delete_filter, list_filters, list_labels, list_threads, set_read, trash
//   - status: "success" or "error"
//   - duration: Time taken for the operation, including a retry
func (m *Metrics) RecordMailboxOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.mailboxOperationsTotal == nil || m.mailboxOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.mailboxOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.mailboxOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAnalyticsQuery records a bucketed count query against the analytics backend.
func (m *Metrics) RecordAnalyticsQuery(ctx context.Context, backend, status string, duration time.Duration) {
	if m == nil || m.analyticsQueriesTotal == nil || m.analyticsQueryDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, status),
	}

	m.analyticsQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.analyticsQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRollback records an optimistic mutation that was reverted.
func (m *Metrics) RecordRollback(ctx context.Context, kind string) {
	if m == nil || m.rollbacksTotal == nil {
		return
	}
	m.rollbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordConflict records an operation rejected because another was in flight.
// Entity is "sender" or "thread".
func (m *Metrics) RecordConflict(ctx context.Context, entity string) {
	if m == nil || m.conflictsTotal == nil {
		return
	}
	m.conflictsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrEntity, entity)))
}

// RecordNotification records a notification handed to the sink.
func (m *Metrics) RecordNotification(ctx context.Context, operation, outcome string) {
	if m == nil || m.notificationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrOutcome, outcome),
	}

	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRetry records a transient failure that is about to be retried.
// API is "mailbox" or "analytics".
func (m *Metrics) RecordRetry(ctx context.Context, api string) {
	if m == nil || m.retriesTotal == nil {
		return
	}
	m.retriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrAPI, api)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// The account label is only attached when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// StatusFromError maps an error to the status label value.
func StatusFromError(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
