package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CONFIG_NAME", "graph")
	path := writeConfig(t, "name: ${TEST_CONFIG_NAME}\nport: 9090\n")

	cfg := testConfig{}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "graph" || cfg.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, "name: x\nport: 0\n")
	err := Load(path, &testConfig{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := testConfig{Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("defaults changed: %+v", cfg)
	}

	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &testConfig{}); err == nil {
		t.Error("invalid defaults should still fail validation")
	}

	path := writeConfig(t, "port: 7070\n")
	if err := LoadOptional(path, &cfg); err != nil || cfg.Port != 7070 {
		t.Errorf("LoadOptional = %v, cfg = %+v", err, cfg)
	}
}
