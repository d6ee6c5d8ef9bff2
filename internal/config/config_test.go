package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith("", env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if cfg.Port != "8080" || cfg.DBPath != "price.db" || cfg.Storage != want.Storage {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.Quota != 5*1024*1024 {
		t.Errorf("quota = %d, want 5 MiB", cfg.Storage.Quota)
	}
	if cfg.UndoWindow != 3*time.Second || cfg.WriteLimit != 60 {
		t.Errorf("undo = %v, write limit = %d", cfg.UndoWindow, cfg.WriteLimit)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price.yaml")
	yamlDoc := `
port: "9000"
log_level: debug
storage:
  backend: memory
  quota: 2048
  codec: msgpack
undo_window: 5s
allowed_origins:
  - localhost:*
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadWith(path, env(map[string]string{
		"PRICE_PORT":          "9100",
		"PRICE_STORAGE_QUOTA": "4096",
		"PRICE_LOG_FORMAT":    "",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("port = %q, env should win", cfg.Port)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Storage.Codec != "msgpack" || cfg.Storage.Quota != 4096 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.UndoWindow != 5*time.Second {
		t.Errorf("undo window = %v", cfg.UndoWindow)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "localhost:*" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.DBPath != "price.db" {
		t.Errorf("db path = %q, default should survive", cfg.DBPath)
	}
}

func TestLoadEnvOrigins(t *testing.T) {
	cfg, err := LoadWith("", env(map[string]string{"PRICE_ALLOWED_ORIGINS": "a.example, ,b.example"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "b.example" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"port not a number", map[string]string{"PRICE_PORT": "http"}},
		{"port out of range", map[string]string{"PRICE_PORT": "70000"}},
		{"unknown backend", map[string]string{"PRICE_STORAGE_BACKEND": "s3"}},
		{"unknown codec", map[string]string{"PRICE_CODEC": "xml"}},
		{"bad quota", map[string]string{"PRICE_STORAGE_QUOTA": "lots"}},
		{"negative quota", map[string]string{"PRICE_STORAGE_QUOTA": "-1"}},
		{"bad undo window", map[string]string{"PRICE_UNDO_WINDOW": "soon"}},
		{"zero undo window", map[string]string{"PRICE_UNDO_WINDOW": "0s"}},
		{"negative write limit", map[string]string{"PRICE_WRITE_LIMIT": "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadWith("", env(tt.vars)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadWith(filepath.Join(t.TempDir(), "absent.yaml"), env(nil)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("port: [unclosed"), 0o600)

	if _, err := LoadWith(path, env(nil)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Port = ""
	cfg.Storage.Codec = "xml"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Errorf("err = %v, want two problems", err)
	}
}
