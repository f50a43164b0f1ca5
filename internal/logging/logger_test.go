// Package logging includes tests for the service logger builders.
package logging

import "testing"

// TestNewDevelopmentLogger confirms the development logger builds, carries
// the service name, and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	if logger.Name() != serviceName {
		t.Fatalf("expected logger named %q, got %q", serviceName, logger.Name())
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration
// succeeds and component loggers derive cleanly from it.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	child := logger.Named("ingest")
	if child.Name() != serviceName+".ingest" {
		t.Fatalf("expected derived name %q, got %q", serviceName+".ingest", child.Name())
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}
