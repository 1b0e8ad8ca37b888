package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
wms:
  base_url: https://wms.example.com/
  login: bot@example.com
  timeout: 10s
  max_calls: 60
  time_window: 60s
  retries: 3
  retry_delay: 30s
run:
  skus_to_batch_path: skus_to_batch.json
  min_batch_size: 5
  max_batch_size: 100
  min_batch_size_seni: 3
  non_prio_cart_threshold: 10
logging:
  level: info
  format: json
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("PULPO_PASSWORD", "secret")

	cfg, err := Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.WMS.Password != "secret" {
		t.Errorf("WMS.Password = %q, want %q", cfg.WMS.Password, "secret")
	}
	if cfg.Run.MinBatchSize != 5 {
		t.Errorf("Run.MinBatchSize = %d, want 5", cfg.Run.MinBatchSize)
	}
}

func TestValidateRequiresPassword(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to fail without a password")
	}
}

func TestValidateRejectsInconsistentBatchSizes(t *testing.T) {
	t.Setenv("PULPO_PASSWORD", "secret")

	cfg, err := Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Run.MaxBatchSize = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject max_batch_size < min_batch_size")
	}
}
