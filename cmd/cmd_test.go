package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/achilleasa/lumen/config"
	"github.com/urfave/cli"
)

func mockContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range CompileFlags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(nil, set, nil)
}

func TestBuildOptionsDefaults(t *testing.T) {
	opts, err := buildOptions(mockContext(t))
	if err != nil {
		t.Fatal(err)
	}
	if opts != config.Default() {
		t.Fatalf("expected default options; got %+v", opts)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "lumen.toml")
	payload := `
skybox = "sky.hdr"

[bvh]
max_leaf_size = 2
parallel = true
`
	if err := os.WriteFile(cfgFile, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := buildOptions(mockContext(t, "--config", cfgFile, "--max-leaf-size", "16", "--dof", "--no-bvh"))
	if err != nil {
		t.Fatal(err)
	}

	if opts.Bvh.MaxLeafSize != 16 {
		t.Fatalf("expected max leaf size to be 16; got %d", opts.Bvh.MaxLeafSize)
	}
	if !opts.Bvh.Parallel || opts.Bvh.Enabled {
		t.Fatalf("expected parallel BVH option from file and BVH to be disabled; got %+v", opts.Bvh)
	}
	if !opts.DepthOfField || opts.Skybox != "sky.hdr" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestInvalidLeafSizeFlag(t *testing.T) {
	if _, err := buildOptions(mockContext(t, "--max-leaf-size", "0")); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestCompiledSceneFile(t *testing.T) {
	specs := map[string]string{
		"scenes/cornell.json": "scenes/cornell.zip",
		"cornell.yaml":        "cornell.zip",
		"cornell":             "cornell.zip",
	}

	for in, exp := range specs {
		if got := compiledSceneFile(in); got != exp {
			t.Errorf("expected %q for %q; got %q", exp, in, got)
		}
	}
}

func TestWatchScenes(t *testing.T) {
	sceneFile := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(sceneFile, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	changed := make(chan string, 16)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watchScenes([]string{sceneFile}, done, func(f string) {
			changed <- f
		})
	}()

	// Keep touching the file until the watcher picks up a change. Writes are
	// spaced out so the debounce timer can fire.
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(4 * watchDebounce)
	defer ticker.Stop()

	var got string
	for got == "" {
		select {
		case got = <-changed:
		case <-ticker.C:
			if err := os.WriteFile(sceneFile, []byte(`{"Objects": []}`), 0644); err != nil {
				t.Fatal(err)
			}
		case <-timeout:
			t.Fatal("timed out waiting for change notification")
		}
	}

	if got != sceneFile {
		t.Fatalf("expected change notification for %q; got %q", sceneFile, got)
	}

	close(done)
	if err := <-watchErr; err != nil {
		t.Fatal(err)
	}
}
