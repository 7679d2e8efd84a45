package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./data/db/articles.db"
watch:
  directories: ["./spool/incoming"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "articles.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "spool", "incoming")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestLoad_providers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
summary:
  probe_ttl: 10s
  providers:
    - name: claude
      weight: 2.0
      api_key_env: ANTHROPIC_API_KEY
    - name: ollama
      model: llama3.2
      min_text_len: 30
      max_chars: 12000
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Summary.Providers) != 2 {
		t.Fatalf("providers: got %d", len(cfg.Summary.Providers))
	}
	if cfg.Summary.Providers[0].Name != "claude" || cfg.Summary.Providers[0].Weight != 2.0 {
		t.Errorf("first provider: %+v", cfg.Summary.Providers[0])
	}
	// Unset weight defaults to 1.0 so every provider participates in ordering.
	if cfg.Summary.Providers[1].Weight != 1.0 {
		t.Errorf("second provider weight: got %f, want 1.0", cfg.Summary.Providers[1].Weight)
	}
	if cfg.Summary.ProbeTTL.Std() != 10*time.Second {
		t.Errorf("probe_ttl: got %v", cfg.Summary.ProbeTTL)
	}
	if cfg.Summary.Providers[1].MinTextLen != 30 || cfg.Summary.Providers[1].MaxChars != 12000 {
		t.Errorf("second provider input bounds: %+v", cfg.Summary.Providers[1])
	}
	// Unset bounds stay zero so the provider's own defaults apply.
	if cfg.Summary.Providers[0].MinTextLen != 0 || cfg.Summary.Providers[0].MaxChars != 0 {
		t.Errorf("first provider input bounds: %+v", cfg.Summary.Providers[0])
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Backend != "onnx" {
		t.Errorf("default embedding backend: got %s", cfg.Embedding.Backend)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.BatchSize != 8 {
		t.Errorf("default batch_size: got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Search.DefaultTopK != 10 || cfg.Search.MaxTopK != 100 {
		t.Errorf("default topK: %+v", cfg.Search)
	}
	if cfg.Search.ChunkSize != 512 || cfg.Search.ChunkOverlap != 50 {
		t.Errorf("default chunking: %+v", cfg.Search)
	}
	if cfg.Summary.ProbeTTL.Std() != 5*time.Second {
		t.Errorf("default probe_ttl: got %v", cfg.Summary.ProbeTTL)
	}
	if cfg.Summary.ContextBudget != 6000 {
		t.Errorf("default context_budget: got %d", cfg.Summary.ContextBudget)
	}
	if len(cfg.Summary.Providers) != 1 || cfg.Summary.Providers[0].Name != "ollama" {
		t.Errorf("default providers: %+v", cfg.Summary.Providers)
	}
	if cfg.Watch.Extensions == nil {
		t.Error("watch extensions should be set by default")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
