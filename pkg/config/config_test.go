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
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
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
	t.Setenv("SAMPLE_NAME", "lore")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 80\n")

	s := sample{Extra: "kept"}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "lore" || s.Port != 80 || s.Extra != "kept" {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "name: x\nport: 0\n")
	err := Load(path, &sample{})
	if err == nil || !strings.Contains(err.Error(), "port must be positive") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{Port: 1}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeFile(t, "port: [unterminated\n")
	if err := Load(path, &sample{Port: 1}); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Port: 8080}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil || found {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}
	if s.Port != 8080 {
		t.Errorf("defaults changed: %+v", s)
	}

	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); err == nil {
		t.Error("invalid defaults should still fail validation")
	}

	path := writeFile(t, "port: 9\n")
	found, err = LoadOptional(path, &s)
	if err != nil || !found || s.Port != 9 {
		t.Errorf("found=%v err=%v s=%+v", found, err, s)
	}
}
