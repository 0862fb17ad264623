package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "HEALTHIMPACT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields missing from the file keep their defaults. An empty path yields the
// default configuration. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// decode strictly unmarshals data over cfg. Unknown keys are errors.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention HEALTHIMPACT_SECTION_FIELD (e.g. HEALTHIMPACT_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Decode the YAML file over them
// 3. Apply environment variable overrides
// 4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean or duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	if val := os.Getenv(EnvPrefix + "SERVER_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = i
		}
	}
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)

	// Rules overrides
	envString("RULES_FILE_PATH", &cfg.Rules.FilePath)
	envBool("RULES_WATCH", &cfg.Rules.Watch)
	envDuration("RULES_DEBOUNCE_INTERVAL", &cfg.Rules.DebounceInterval)
	envString("RULES_RELOAD_SCHEDULE", &cfg.Rules.ReloadSchedule)
	envBool("RULES_GIT_ENABLED", &cfg.Rules.Git.Enabled)
	envString("RULES_GIT_REPOSITORY", &cfg.Rules.Git.Repository)
	envString("RULES_GIT_BRANCH", &cfg.Rules.Git.Branch)
	envString("RULES_GIT_PATH", &cfg.Rules.Git.Path)
	envDuration("RULES_GIT_POLL_INTERVAL", &cfg.Rules.Git.PollInterval)
	envString("RULES_GIT_LOCAL_PATH", &cfg.Rules.Git.LocalPath)
	envString("RULES_GIT_AUTH_TYPE", &cfg.Rules.Git.Auth.Type)
	envString("RULES_GIT_TOKEN", &cfg.Rules.Git.Auth.Token)
	envString("RULES_GIT_SSH_KEY_PATH", &cfg.Rules.Git.Auth.SSHKeyPath)

	// Engine overrides
	envString("ENGINE_FIELD_POLICY", &cfg.Engine.FieldPolicy)
	envInt("ENGINE_PARALLEL_THRESHOLD", &cfg.Engine.ParallelThreshold)
	envInt("ENGINE_MAX_FIELDS", &cfg.Engine.MaxFields)

	// Catalog overrides
	envBool("CATALOG_ENABLED", &cfg.Catalog.Enabled)
	envString("CATALOG_BACKEND", &cfg.Catalog.Backend)
	envString("CATALOG_SQLITE_PATH", &cfg.Catalog.SQLite.Path)
	envBool("CATALOG_CACHE_ENABLED", &cfg.Catalog.Cache.Enabled)
	envDuration("CATALOG_CACHE_TTL", &cfg.Catalog.Cache.TTL)
	envString("CATALOG_SEED_FILE", &cfg.Catalog.SeedFile)

	// Rate limit overrides
	envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envFloat("RATE_LIMIT_REQUESTS_PER_SECOND", &cfg.RateLimit.RequestsPerSecond)
	envInt("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
