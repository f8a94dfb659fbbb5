package server

import (
	"net/http"
	"time"

	"github.com/teemow/senderwatch/internal/instrumentation"
)

// MCPEndpointPath is where the streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// NewHTTPHandler mounts the MCP handler at MCPEndpointPath next to the
// health endpoints. Requests to the MCP endpoint are counted in the HTTP
// request metrics.
func NewHTTPHandler(mcpHandler http.Handler, health *HealthChecker, metrics *instrumentation.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, InstrumentHandler(MCPEndpointPath, mcpHandler, metrics))
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}
	return mux
}

// InstrumentHandler records method, status and duration of every request.
// path is used as the metric label instead of the request path to keep
// the label set bounded.
func InstrumentHandler(path string, next http.Handler, metrics *instrumentation.Metrics) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
