package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	fails bool
}

func (s *sample) Validate() error {
	if s.fails || s.Port < 0 {
		return errors.New("bad port")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "notes")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	cfg := sample{Port: 8080}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "notes" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want default kept", cfg.Port)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "name: x\nprot: 1\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "")
	cfg := sample{Port: 1}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "port: -1\n")
	var cfg sample
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := sample{Port: 9}
	if err := LoadOptional(missing, &cfg); err != nil {
		t.Fatalf("missing file should be fine: %v", err)
	}
	if cfg.Port != 9 {
		t.Errorf("port = %d", cfg.Port)
	}

	bad := sample{fails: true}
	if err := LoadOptional(missing, &bad); err == nil {
		t.Error("defaults are still validated")
	}

	path := writeFile(t, "port: 7\n")
	if err := LoadOptional(path, &cfg); err != nil || cfg.Port != 7 {
		t.Errorf("LoadOptional existing = %v, port %d", err, cfg.Port)
	}
}
