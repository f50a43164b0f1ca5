package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  timeout_seconds: 45
auth:
  enabled: true
  api_key: secret
fetch:
  user_agent: paperstore-test
  timeout_seconds: 20
  max_body_mb: 50
arxiv:
  timeout_seconds: 10
storage:
  backend: gcs
  gcs_bucket: bucket
  prefix: archive
db:
  backend: postgres
  dsn: postgres://localhost/papers
pubsub:
  enabled: true
  project_id: test-project
  topic_name: events
extractor:
  enabled: true
  api_key: gemini-key
  model: gemini-1.5-pro
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Fetch.UserAgent != "paperstore-test" || cfg.Fetch.MaxBodyMB != 50 {
		t.Fatalf("expected fetch overrides to apply: %+v", cfg.Fetch)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "bucket" {
		t.Fatalf("expected gcs storage config: %+v", cfg.Storage)
	}
	if cfg.DB.Backend != "postgres" || cfg.DB.DSN == "" {
		t.Fatalf("expected postgres db config: %+v", cfg.DB)
	}
	if cfg.Extractor.Model != "gemini-1.5-pro" {
		t.Fatalf("expected extractor model override, got %q", cfg.Extractor.Model)
	}
	if cfg.Logging.Development {
		t.Fatal("expected logging.development false")
	}
	if got := cfg.FetchTimeout(); got != 20*time.Second {
		t.Fatalf("expected fetch timeout 20s, got %v", got)
	}
	if got := cfg.ServerTimeout(); got != 45*time.Second {
		t.Fatalf("expected server timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.DB.Backend != "memory" || cfg.Storage.Backend != "memory" {
		t.Fatalf("expected memory defaults: db=%q storage=%q", cfg.DB.Backend, cfg.Storage.Backend)
	}
	if cfg.Arxiv.Endpoint == "" {
		t.Fatal("expected default arxiv endpoint")
	}
	if cfg.PubSub.TopicName != "paper-ingested" {
		t.Fatalf("unexpected default topic %q", cfg.PubSub.TopicName)
	}
}

func TestLoadEnvBindsDefaultlessKeys(t *testing.T) {
	t.Setenv("PAPERSTORE_DB_BACKEND", "postgres")
	t.Setenv("PAPERSTORE_DB_DSN", "postgres://paperstore@localhost/papers")
	t.Setenv("PAPERSTORE_AUTH_ENABLED", "true")
	t.Setenv("PAPERSTORE_AUTH_API_KEY", "hunter2")
	t.Setenv("PAPERSTORE_EXTRACTOR_API_KEY", "gemini-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB.DSN != "postgres://paperstore@localhost/papers" {
		t.Fatalf("expected db.dsn from environment, got %q", cfg.DB.DSN)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "hunter2" {
		t.Fatalf("expected auth key from environment: %+v", cfg.Auth)
	}
	if cfg.Extractor.APIKey != "gemini-key" {
		t.Fatalf("expected extractor key from environment, got %q", cfg.Extractor.APIKey)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080, TimeoutSeconds: 60},
		Fetch:   FetchConfig{TimeoutSeconds: 30},
		Storage: StorageConfig{Backend: "memory"},
		DB:      DBConfig{Backend: "memory"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid fetch timeout",
			cfg: func() Config {
				c := base
				c.Fetch.TimeoutSeconds = 0
				return c
			}(),
			want: "fetch.timeout_seconds",
		},
		{
			name: "postgres without dsn",
			cfg: func() Config {
				c := base
				c.DB.Backend = "postgres"
				return c
			}(),
			want: "db.dsn",
		},
		{
			name: "unknown db backend",
			cfg: func() Config {
				c := base
				c.DB.Backend = "mysql"
				return c
			}(),
			want: "db.backend",
		},
		{
			name: "local without dir",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "local"
				return c
			}(),
			want: "storage.local_dir",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "pubsub without project",
			cfg: func() Config {
				c := base
				c.PubSub.Enabled = true
				return c
			}(),
			want: "pubsub.project_id",
		},
		{
			name: "extractor without key",
			cfg: func() Config {
				c := base
				c.Extractor.Enabled = true
				return c
			}(),
			want: "extractor.api_key",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
