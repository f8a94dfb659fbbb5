package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withRecorder installs a recording tracer provider for the duration of the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("sender_auto_archive").
		WithOperation(OperationCreateFilter).
		WithAccount("me@example.com").
		WithSender("sender:0123456789abcdef").
		WithResource("filter", "f-1").
		WithReadOnly(false).
		Build()

	if len(attrs) != 7 {
		t.Errorf("expected 7 attributes, got %d", len(attrs))
	}

	got := make(map[string]interface{})
	for _, attr := range attrs {
		got[string(attr.Key)] = attr.Value.AsInterface()
	}

	if got[SpanAttrTool] != "sender_auto_archive" {
		t.Errorf("expected tool 'sender_auto_archive', got %v", got[SpanAttrTool])
	}
	if got[SpanAttrOperation] != OperationCreateFilter {
		t.Errorf("expected operation %q, got %v", OperationCreateFilter, got[SpanAttrOperation])
	}
	if got[SpanAttrSender] != "sender:0123456789abcdef" {
		t.Errorf("expected sender hash, got %v", got[SpanAttrSender])
	}
	if got[SpanAttrResourceID] != "f-1" {
		t.Errorf("expected resource id 'f-1', got %v", got[SpanAttrResourceID])
	}
	if got[SpanAttrReadOnly] != false {
		t.Errorf("expected read_only false, got %v", got[SpanAttrReadOnly])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("test_tool").
		WithAccount("").
		WithSender("").
		WithResource("", "").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func TestSpanNames(t *testing.T) {
	recorder := withRecorder(t)
	ctx := context.Background()

	_, span := StartToolSpan(ctx, "thread_trash")
	span.End()
	_, span = StartMailboxSpan(ctx, OperationTrash)
	span.End()
	_, span = StartAnalyticsSpan(ctx, BackendSQLite, 3)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(ended))
	}

	want := []string{"tool.thread_trash", "mailbox.trash", "analytics.query_counts"}
	for i, name := range want {
		if ended[i].Name() != name {
			t.Errorf("span %d name = %q, want %q", i, ended[i].Name(), name)
		}
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	AddSpanEvent(span, "committed")
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", ended[0].Status().Code)
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(ended[0].Events()))
	}
}

func TestTraceContext(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("expected empty trace ID for context without span")
	}
	if GetSpanID(context.Background()) != "" {
		t.Error("expected empty span ID for context without span")
	}
	if SpanContextString(context.Background()) != "" {
		t.Error("expected empty context string for context without span")
	}

	withRecorder(t)
	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Error("expected trace and span IDs from a recording span")
	}
}
