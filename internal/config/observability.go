package config

// TelemetryConfig holds OTLP trace export configuration.
//
// An empty Endpoint disables tracing entirely; the pipeline still creates
// spans, they just never leave the process.
// See internal/observability/tracing.go for the exporter setup.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (e.g. "localhost:4318").
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName is the service name on exported spans (default: loom)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// Insecure disables TLS toward the collector (default: true, for a
	// local agent)
	Insecure bool `mapstructure:"insecure" json:"insecure"`
}
