package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
)

func TestLoadSkusToBatchRulesParsesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "skus.json")
	writeFile(t, path, `{"SKU-1":{"id":"1000","separate_batch_from":20}}`)

	rules, err := LoadSkusToBatchRules(path)
	if err != nil {
		t.Fatalf("LoadSkusToBatchRules: %v", err)
	}
	if _, ok := rules["SKU-1"]; !ok {
		t.Errorf("expected SKU-1 rule to be present, got %+v", rules)
	}
}

func TestLoadSkusToBatchRulesMissingFileIsConfigError(t *testing.T) {
	t.Parallel()
	_, err := LoadSkusToBatchRules(filepath.Join(t.TempDir(), "missing.json"))
	var configErr *wmsclient.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected a *wmsclient.ConfigError for a missing file, got %v", err)
	}
}

func TestLoadSkusToBatchRulesMalformedFileIsConfigError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "skus.json")
	writeFile(t, path, `not json`)

	_, err := LoadSkusToBatchRules(path)
	var configErr *wmsclient.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected a *wmsclient.ConfigError for a malformed file, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
}
