// Package config provides configuration management for the health impact
// service.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention HEALTHIMPACT_SECTION_FIELD:
//
//   - HEALTHIMPACT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - HEALTHIMPACT_RULES_FILE_PATH overrides rules.file_path
//   - HEALTHIMPACT_ENGINE_FIELD_POLICY overrides engine.field_policy
//   - HEALTHIMPACT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Unknown YAML keys are rejected so that typos surface at startup.
//
// # Singleton Pattern
//
// The CLI stores the loaded configuration with Initialize and reads it back
// with GetConfig. Library code receives explicit values instead.
package config
