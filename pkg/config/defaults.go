package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8000"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600

	// Rules defaults
	DefaultRulesDebounceInterval = 100 * time.Millisecond
	DefaultGitBranch             = "main"
	DefaultGitRulesPath          = "health_rules.yaml"
	DefaultGitAuthType           = "none"
	DefaultGitPollInterval       = time.Minute
	DefaultGitTimeout            = 30 * time.Second
	DefaultGitDepth              = 1
	DefaultGitLocalPath          = "data/rules-repo"

	// Engine defaults
	DefaultFieldPolicy = "skip"
	DefaultMaxFields   = 512

	// Catalog defaults
	DefaultCatalogEnabled       = true
	DefaultCatalogBackend       = "sqlite"
	DefaultCatalogSQLitePath    = "data/catalog.db"
	DefaultSQLiteMaxOpenConns   = 4
	DefaultSQLiteMaxIdleConns   = 2
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultCacheEnabled         = true
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheCleanupInterval = 10 * time.Minute

	// Rate limit defaults
	DefaultRateLimitRPS     = 20.0
	DefaultRateLimitBurst   = 40
	DefaultRateLimitIdleTTL = 10 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "healthimpact"
	DefaultMetricsSubsystem    = "api"
	DefaultMaxCardinality      = 100
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingExporter     = "otlp"
	DefaultTracingEndpoint     = "localhost:4317"
	DefaultTracingServiceName  = "healthimpact"
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 2 * time.Second
)

// Default returns a configuration with every field at its default value.
// LoadConfig decodes the YAML file on top of it, so boolean fields that
// default to true stay true unless the file sets them to false.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: DefaultCORSEnabled},
		},
		Rules: RulesConfig{
			Git: RulesGitConfig{
				PollInterval: DefaultGitPollInterval,
				Depth:        DefaultGitDepth,
			},
		},
		Catalog: CatalogConfig{
			Enabled: DefaultCatalogEnabled,
			SQLite:  SQLiteConfig{WALMode: DefaultSQLiteWALMode},
			Cache:   CacheConfig{Enabled: DefaultCacheEnabled},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{OTLP: OTLPConfig{Insecure: true}},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	if cfg.Rules.DebounceInterval == 0 {
		cfg.Rules.DebounceInterval = DefaultRulesDebounceInterval
	}
	applyGitDefaults(&cfg.Rules.Git)

	if cfg.Engine.FieldPolicy == "" {
		cfg.Engine.FieldPolicy = DefaultFieldPolicy
	}
	if cfg.Engine.MaxFields == 0 {
		cfg.Engine.MaxFields = DefaultMaxFields
	}

	applyCatalogDefaults(&cfg.Catalog)

	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.RateLimit.IdleTTL == 0 {
		cfg.RateLimit.IdleTTL = DefaultRateLimitIdleTTL
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.Backend == "" {
		c.Backend = DefaultCatalogBackend
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = DefaultCatalogSQLitePath
	}
	if c.SQLite.MaxOpenConns == 0 {
		c.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if c.SQLite.MaxIdleConns == 0 {
		c.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if c.SQLite.BusyTimeout == 0 {
		c.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = DefaultCacheCleanupInterval
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	}
	if t.Metrics.MaxCardinality == 0 {
		t.Metrics.MaxCardinality = DefaultMaxCardinality
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.Exporter == "" {
		t.Tracing.Exporter = DefaultTracingExporter
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// applyGitDefaults fills the Git source settings. PollInterval and Depth are
// set by Default so that an explicit 0 in the file keeps its meaning.
func applyGitDefaults(cfg *RulesGitConfig) {
	if cfg.Branch == "" {
		cfg.Branch = DefaultGitBranch
	}
	if cfg.Path == "" {
		cfg.Path = DefaultGitRulesPath
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = DefaultGitAuthType
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultGitTimeout
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = DefaultGitLocalPath
	}
}
