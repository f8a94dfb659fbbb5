package instrumentation

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultServiceName is reported as service.name unless OTEL_SERVICE_NAME is set.
const DefaultServiceName = "senderwatch"

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Environment variables read by DefaultConfig. The OTel names are the
// standard SDK ones so an existing collector setup keeps working.
const (
	EnvEnabled        = "SENDERWATCH_TELEMETRY_ENABLED"
	EnvMetrics        = "SENDERWATCH_METRICS_EXPORTER"
	EnvTracing        = "SENDERWATCH_TRACING_EXPORTER"
	EnvDetailedLabels = "SENDERWATCH_METRICS_ACCOUNT_LABEL"
	EnvAudit          = "SENDERWATCH_AUDIT_LOG"
	EnvAuditPII       = "SENDERWATCH_AUDIT_LOG_ADDRESSES"

	EnvServiceName  = "OTEL_SERVICE_NAME"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplerArg   = "OTEL_TRACES_SAMPLER_ARG"
)

// Config configures telemetry for one senderwatch process.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// InstanceID defaults to the hostname.
	InstanceID string

	Enabled bool

	MetricsExporter   string
	TracingExporter   string
	OTLPEndpoint      string
	OTLPInsecure      bool
	TraceSamplingRate float64

	// Account and AnalyticsBackend describe the watched mailbox. They become
	// resource attributes; the account is reduced to its domain.
	Account          string
	AnalyticsBackend string

	// DetailedLabels adds the mailbox account to tool metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the tool audit log.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII writes full sender addresses instead of their domains.
	IncludePII bool
}

// DefaultConfig reads the telemetry configuration from the environment.
// Unset variables take their defaults.
func DefaultConfig() Config {
	v := viper.New()
	defaults := map[string]interface{}{
		EnvServiceName:    DefaultServiceName,
		EnvEnabled:        true,
		EnvMetrics:        ExporterPrometheus,
		EnvTracing:        ExporterNone,
		EnvOTLPEndpoint:   "",
		EnvOTLPInsecure:   false,
		EnvSamplerArg:     0.1,
		EnvDetailedLabels: false,
		EnvAudit:          true,
		EnvAuditPII:       false,
	}
	for key, def := range defaults {
		v.SetDefault(key, def)
		_ = v.BindEnv(key)
	}

	return Config{
		ServiceName:       v.GetString(EnvServiceName),
		ServiceVersion:    "unknown",
		Enabled:           v.GetBool(EnvEnabled),
		MetricsExporter:   v.GetString(EnvMetrics),
		TracingExporter:   v.GetString(EnvTracing),
		OTLPEndpoint:      v.GetString(EnvOTLPEndpoint),
		OTLPInsecure:      v.GetBool(EnvOTLPInsecure),
		TraceSamplingRate: v.GetFloat64(EnvSamplerArg),
		DetailedLabels:    v.GetBool(EnvDetailedLabels),
		AuditLogging: AuditLoggingConfig{
			Enabled:    v.GetBool(EnvAudit),
			IncludePII: v.GetBool(EnvAuditPII),
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("%s is required for the otlp metrics exporter", EnvOTLPEndpoint)
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("%s is required for the otlp tracing exporter", EnvOTLPEndpoint)
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	switch c.AnalyticsBackend {
	case "", BackendMongo, BackendSQLite:
	default:
		return fmt.Errorf("invalid analytics backend %q, must be one of: mongo, sqlite", c.AnalyticsBackend)
	}

	return nil
}
