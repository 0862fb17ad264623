package config

import "time"

// Config is the root configuration structure for the health impact service.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, body limits and CORS.
	Server ServerConfig `yaml:"server"`

	// Rules controls where the health rules are loaded from and how they
	// are reloaded.
	Rules RulesConfig `yaml:"rules"`

	// Engine contains evaluation engine settings.
	Engine EngineConfig `yaml:"engine"`

	// Catalog contains configuration for the element chemistry catalog.
	Catalog CatalogConfig `yaml:"catalog"`

	// RateLimit contains per-client API rate limiting configuration.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single API request. Requests
	// exceeding it receive 504.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// RulesConfig controls the health rule source.
type RulesConfig struct {
	// FilePath is the YAML or JSON rule document. Empty uses the rules
	// compiled into the binary.
	// Default: ""
	FilePath string `yaml:"file_path"`

	// Watch reloads the rules when FilePath changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file events into one reload.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// ReloadSchedule is an optional cron expression (standard 5-field
	// syntax or descriptors like "@hourly") on which the rule source is
	// re-read. Empty disables scheduled reloads.
	// Default: ""
	ReloadSchedule string `yaml:"reload_schedule"`

	// Git loads the rule document from a Git repository instead of
	// FilePath.
	Git RulesGitConfig `yaml:"git"`
}

// RulesGitConfig configures a Git-backed rule source.
type RulesGitConfig struct {
	// Enabled switches the rule source to Git. FilePath must be empty.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository URL (HTTPS, SSH or a local path).
	// Example: "https://github.com/waterwatch/health-rules.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path of the rule document within the repository.
	// Default: "health_rules.yaml"
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// PollInterval is how often the remote is checked for new commits.
	// 0 loads the rules once at startup.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Depth for shallow clones (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// LocalPath is where the repository is checked out.
	// Default: "data/rules-repo"
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes an existing checkout before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh" or "none".
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication. Required when Type is "token".
	Token string `yaml:"token"`

	// SSHKeyPath is the private key file. Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// EngineConfig contains evaluation engine settings.
type EngineConfig struct {
	// FieldPolicy decides what happens to a measurement that cannot be
	// normalized. Options: "skip", "strict".
	// Default: "skip"
	FieldPolicy string `yaml:"field_policy"`

	// ParallelThreshold is the number of elements at which classification
	// fans out across goroutines. 0 disables the parallel path.
	// Default: 0
	ParallelThreshold int `yaml:"parallel_threshold"`

	// MaxFields is the largest number of measurement fields accepted in one
	// sample.
	// Default: 512
	MaxFields int `yaml:"max_fields"`
}

// CatalogConfig contains element catalog configuration.
type CatalogConfig struct {
	// Enabled exposes the /api/elements routes.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend. Options: "memory", "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Cache contains read-through cache settings.
	Cache CacheConfig `yaml:"cache"`

	// SeedFile is an optional JSON array of entries imported at startup.
	// Existing entries are left untouched.
	// Default: ""
	SeedFile string `yaml:"seed_file"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/catalog.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// CacheConfig contains read-through cache configuration.
type CacheConfig struct {
	// Enabled turns the cache on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is how long an entry stays cached.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// CleanupInterval is how often expired entries are purged.
	// Default: 10m
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RateLimitConfig contains per-client rate limiting configuration.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate allowed per client.
	// Default: 20
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests allowed above the sustained rate.
	// Default: 40
	Burst int `yaml:"burst"`

	// IdleTTL is how long an idle client's limiter is kept.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// TrustForwardedFor keys clients on the first X-Forwarded-For address
	// instead of the connection address.
	// Default: false
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "healthimpact"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "api"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration
	// in seconds.
	// Default: [0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// MaxCardinality caps the number of distinct values tracked for any
	// free-form label.
	// Default: 100
	MaxCardinality int `yaml:"max_cardinality"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects the exporter. Options: "otlp", "stdout"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "healthimpact"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter settings.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether the liveness, readiness and version
	// endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness check path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness check path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the version information path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each component health check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
