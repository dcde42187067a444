package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, payload string) string {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
depth_of_field = true

[bvh]
max_leaf_size = 4
`)

	opts, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !opts.DepthOfField {
		t.Fatal("expected depth of field to be enabled")
	}
	if opts.Bvh.MaxLeafSize != 4 {
		t.Fatalf("expected max leaf size to be 4; got %d", opts.Bvh.MaxLeafSize)
	}
	if !opts.Bvh.Enabled {
		t.Fatal("expected bvh to remain enabled")
	}
	if opts.ResourceRoot != Default().ResourceRoot {
		t.Fatalf("expected default resource root; got %q", opts.ResourceRoot)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `max_leaf = 3`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for unknown key")
	}
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, "[bvh]\nmax_leaf_size = 0\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_leaf_size") {
		t.Fatalf("expected validation error; got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
