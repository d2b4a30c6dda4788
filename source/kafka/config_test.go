package kafka

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsAndYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kafka.yml")
	yml := []byte(`schema_version: v1
brokers: ["b1:9092"]
topics: ["users"]
group_id: g1
commit_mode: e2e
`)
	if err := os.WriteFile(path, yml, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GroupID != "g1" || cfg.CommitMode != CommitE2E {
		t.Fatalf("yaml misparsed: %+v", cfg)
	}
	if cfg.BackPressure.Capacity != 30_000 || cfg.Checkpoint.CommitInt != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.StartFrom != "newest" {
		t.Fatalf("start_from default = %q", cfg.StartFrom)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("AVROFLOW_KAFKA__GROUP_ID", "from-env")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GroupID != "from-env" {
		t.Fatalf("env override not applied: %q", cfg.GroupID)
	}
}

func TestLoadConfig_RejectsUnknownSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kafka.yml")
	if err := os.WriteFile(path, []byte("schema_version: v9\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("want error for unsupported schema_version")
	}
}
