package deltaskip

import "time"

// EngineBackend selects which ExpressionEvaluator/JsonHandler pair a
// DataSkippingFilter built via factory.NewFilter is wired to.
type EngineBackend string

const (
	// EngineBackendMemory evaluates the rewritten predicate with a
	// tree-walking interpreter over in-memory Arrow columns.
	EngineBackendMemory EngineBackend = "memory"
	// EngineBackendDuckDB lowers the rewritten predicate to SQL and
	// evaluates it against an in-process DuckDB connection.
	EngineBackendDuckDB EngineBackend = "duckdb"
)

// Config consolidates settings for wiring a DataSkippingFilter.
type Config struct {
	Engine  EngineConfig  `json:"engine"`
	Logging LoggingConfig `json:"logging"`
}

// EngineConfig selects and configures the evaluation backend.
type EngineConfig struct {
	Backend    EngineBackend `json:"backend"`
	DuckDBPath string        `json:"duckdbPath"`
	Timeout    time.Duration `json:"timeout"`
}

// LoggingConfig mirrors the ambient logging conventions of the surrounding
// data-plane tooling this engine is meant to be embedded in.
type LoggingConfig struct {
	Level            string `json:"level"`
	EnableStructured bool   `json:"enableStructured"`
	LogSkipRatio     bool   `json:"logSkipRatio"`
}

// DefaultConfig returns a ready-to-use configuration backed by the
// in-memory evaluator.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend:    EngineBackendMemory,
			DuckDBPath: ":memory:",
			Timeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:            "info",
			EnableStructured: true,
			LogSkipRatio:     true,
		},
	}
}

// Validate checks the configuration for internally-inconsistent settings.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case EngineBackendMemory, EngineBackendDuckDB:
	default:
		return &ConfigError{Field: "engine.backend", Message: "must be 'memory' or 'duckdb'"}
	}
	if c.Engine.Backend == EngineBackendDuckDB && c.Engine.DuckDBPath == "" {
		return &ConfigError{Field: "engine.duckdbPath", Message: "required when backend is 'duckdb'"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
