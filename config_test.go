package deltaskip

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Backend = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestValidateRequiresDuckDBPathForDuckDBBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Backend = EngineBackendDuckDB
	cfg.Engine.DuckDBPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing duckdbPath")
	}
}
