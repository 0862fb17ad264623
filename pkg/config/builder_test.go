package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a ConfigBuilder whose configuration is valid as is.
// The catalog uses the memory backend so tests do not touch the disk.
func NewTestConfig() *ConfigBuilder {
	cfg := Default()
	cfg.Catalog.Backend = "memory"
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithRequestTimeout sets the per-request timeout.
func (b *ConfigBuilder) WithRequestTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.RequestTimeout = d
	return b
}

// WithRulesFile sets the rule document path and watch mode.
func (b *ConfigBuilder) WithRulesFile(path string, watch bool) *ConfigBuilder {
	b.cfg.Rules.FilePath = path
	b.cfg.Rules.Watch = watch
	return b
}

// WithFieldPolicy sets the engine field policy.
func (b *ConfigBuilder) WithFieldPolicy(policy string) *ConfigBuilder {
	b.cfg.Engine.FieldPolicy = policy
	return b
}

// WithCatalogBackend sets the catalog backend.
func (b *ConfigBuilder) WithCatalogBackend(backend string) *ConfigBuilder {
	b.cfg.Catalog.Backend = backend
	return b
}

// WithRateLimit enables rate limiting.
func (b *ConfigBuilder) WithRateLimit(rps float64, burst int) *ConfigBuilder {
	b.cfg.RateLimit.Enabled = true
	b.cfg.RateLimit.RequestsPerSecond = rps
	b.cfg.RateLimit.Burst = burst
	return b
}

// WithTracing enables tracing with the given exporter.
func (b *ConfigBuilder) WithTracing(exporter string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Exporter = exporter
	return b
}
