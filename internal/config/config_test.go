package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckhistory.yaml")
	body := []byte(`
storage:
  driver: sqlite
  sqlite_path: /tmp/runs.db
blob:
  driver: s3
  s3:
    bucket: analyses
logging:
  level: debug
history:
  max_stack_height: 3
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvBlobS3PathStyle, "TRUE")
	t.Setenv(EnvBlobS3Endpoint, "http://minio:9000")
	t.Setenv(EnvMaxStackHeight, "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/runs.db" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Blob.S3.Bucket != "analyses" || !cfg.Blob.S3.PathStyle || cfg.Blob.S3.Endpoint != "http://minio:9000" {
		t.Fatalf("unexpected blob %+v", cfg.Blob)
	}
	if cfg.Blob.S3.Region != "us-east-1" {
		t.Fatalf("expected default region kept, got %q", cfg.Blob.S3.Region)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.History.MaxStackHeight != 7 {
		t.Fatalf("expected env max stack height 7, got %d", cfg.History.MaxStackHeight)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"storage driver": {EnvStorageDriver: "mongo"},
		"postgres dsn":   {EnvStorageDriver: "postgres"},
		"blob driver":    {EnvBlobDriver: "gcs"},
		"s3 bucket":      {EnvBlobDriver: "s3"},
		"stack height":   {EnvMaxStackHeight: "0"},
		"stack parse":    {EnvMaxStackHeight: "five"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
