package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: fmt.Sprintf("invalid host:port: %v", err)})
	}

	durations := []struct {
		field string
		value int64
	}{
		{"server.read_timeout", int64(cfg.ReadTimeout)},
		{"server.write_timeout", int64(cfg.WriteTimeout)},
		{"server.idle_timeout", int64(cfg.IdleTimeout)},
		{"server.shutdown_timeout", int64(cfg.ShutdownTimeout)},
		{"server.request_timeout", int64(cfg.RequestTimeout)},
	}
	for _, d := range durations {
		if d.value < 0 {
			errs = append(errs, FieldError{Field: d.field, Message: "timeout must not be negative"})
		}
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes exceeds reasonable limit (10MB)"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be positive"})
	}

	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "max age must be non-negative"})
	}
	if cfg.CORS.AllowCredentials {
		for _, o := range cfg.CORS.AllowedOrigins {
			if o == "*" {
				errs = append(errs, FieldError{
					Field:   "server.cors.allowed_origins",
					Message: "wildcard origin cannot be combined with allow_credentials",
				})
				break
			}
		}
	}

	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.FilePath == "" {
		errs = append(errs, FieldError{Field: "rules.watch", Message: "watch requires rules.file_path"})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{Field: "rules.debounce_interval", Message: "debounce interval must not be negative"})
	}
	if cfg.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ReloadSchedule); err != nil {
			errs = append(errs, FieldError{Field: "rules.reload_schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if cfg.Git.Enabled {
		if cfg.FilePath != "" {
			errs = append(errs, FieldError{Field: "rules.git.enabled", Message: "git source cannot be combined with rules.file_path"})
		}
		errs = append(errs, validateGit(&cfg.Git)...)
	}

	return errs
}

func validateGit(cfg *RulesGitConfig) []FieldError {
	var errs []FieldError

	if cfg.Repository == "" {
		errs = append(errs, FieldError{Field: "rules.git.repository", Message: "repository is required"})
	}
	if cfg.Branch == "" {
		errs = append(errs, FieldError{Field: "rules.git.branch", Message: "branch is required"})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "rules.git.path", Message: "path is required"})
	}
	if cfg.PollInterval < 0 {
		errs = append(errs, FieldError{Field: "rules.git.poll_interval", Message: "poll interval must not be negative"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "rules.git.timeout", Message: "timeout must not be negative"})
	}
	if cfg.Depth < 0 {
		errs = append(errs, FieldError{Field: "rules.git.depth", Message: "depth must not be negative"})
	}

	switch cfg.Auth.Type {
	case "", "none":
	case "token":
		if cfg.Auth.Token == "" {
			errs = append(errs, FieldError{Field: "rules.git.auth.token", Message: "token is required for token authentication"})
		}
	case "ssh":
		if cfg.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "rules.git.auth.ssh_key_path", Message: "ssh_key_path is required for ssh authentication"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "rules.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q (must be token, ssh or none)", cfg.Auth.Type),
		})
	}

	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	switch cfg.FieldPolicy {
	case "skip", "strict":
	default:
		errs = append(errs, FieldError{
			Field:   "engine.field_policy",
			Message: fmt.Sprintf("invalid field policy %q (must be skip or strict)", cfg.FieldPolicy),
		})
	}
	if cfg.ParallelThreshold < 0 {
		errs = append(errs, FieldError{Field: "engine.parallel_threshold", Message: "parallel threshold must not be negative"})
	}
	if cfg.MaxFields <= 0 {
		errs = append(errs, FieldError{Field: "engine.max_fields", Message: "max fields must be positive"})
	}

	return errs
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "catalog.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.MaxOpenConns <= 0 {
			errs = append(errs, FieldError{Field: "catalog.sqlite.max_open_conns", Message: "max open connections must be positive"})
		}
		if cfg.SQLite.MaxIdleConns < 0 || cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "catalog.sqlite.max_idle_conns", Message: "max idle connections must be between 0 and max_open_conns"})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "catalog.sqlite.busy_timeout", Message: "busy timeout must not be negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "catalog.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}

	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		errs = append(errs, FieldError{Field: "catalog.cache.ttl", Message: "ttl must be positive"})
	}
	if cfg.Cache.CleanupInterval < 0 {
		errs = append(errs, FieldError{Field: "catalog.cache.cleanup_interval", Message: "cleanup interval must not be negative"})
	}

	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if cfg.RequestsPerSecond <= 0 {
		errs = append(errs, FieldError{Field: "rate_limit.requests_per_second", Message: "requests per second must be positive"})
	}
	if cfg.Burst <= 0 {
		errs = append(errs, FieldError{Field: "rate_limit.burst", Message: "burst must be positive"})
	}
	if cfg.IdleTTL <= 0 {
		errs = append(errs, FieldError{Field: "rate_limit.idle_ttl", Message: "idle ttl must be positive"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
		}
		if cfg.Metrics.MaxCardinality <= 0 {
			errs = append(errs, FieldError{Field: "telemetry.metrics.max_cardinality", Message: "max cardinality must be positive"})
		}
		for i := 1; i < len(cfg.Metrics.RequestDurationBuckets); i++ {
			if cfg.Metrics.RequestDurationBuckets[i] <= cfg.Metrics.RequestDurationBuckets[i-1] {
				errs = append(errs, FieldError{Field: "telemetry.metrics.request_duration_buckets", Message: "buckets must be strictly increasing"})
				break
			}
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
		}
		switch cfg.Tracing.Exporter {
		case "otlp":
			if cfg.Tracing.Endpoint == "" {
				errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required for the otlp exporter"})
			}
		case "stdout":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("invalid exporter %q (must be otlp or stdout)", cfg.Tracing.Exporter),
			})
		}
	}

	if cfg.Health.Enabled {
		paths := map[string]string{
			"telemetry.health.liveness_path":  cfg.Health.LivenessPath,
			"telemetry.health.readiness_path": cfg.Health.ReadinessPath,
			"telemetry.health.version_path":   cfg.Health.VersionPath,
		}
		for _, field := range []string{"telemetry.health.liveness_path", "telemetry.health.readiness_path", "telemetry.health.version_path"} {
			if !strings.HasPrefix(paths[field], "/") {
				errs = append(errs, FieldError{Field: field, Message: "path must start with /"})
			}
		}
	}

	return errs
}
