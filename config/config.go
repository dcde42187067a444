package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// The default number of primitives that can be stored in a BVH leaf.
const DefaultMaxLeafSize = 8

// BVH construction options.
type BvhOptions struct {
	// Build the BVH after the scene has been parsed.
	Enabled bool `toml:"enabled"`

	// The max number of primitives in a leaf.
	MaxLeafSize int `toml:"max_leaf_size"`

	// Build independent subtrees concurrently.
	Parallel bool `toml:"parallel"`
}

// Options control how a scene is compiled. They are resolved before parsing
// begins and replace compile-time feature switches.
type Options struct {
	Bvh BvhOptions `toml:"bvh"`

	// Read lens radius and focal length from the camera definition.
	DepthOfField bool `toml:"depth_of_field"`

	// Path to an environment map image. An empty value disables the skybox.
	Skybox string `toml:"skybox"`

	// Folder containing mesh assets referenced by name. Relative paths are
	// resolved against the scene file location.
	ResourceRoot string `toml:"resource_root"`
}

// Get the default compilation options.
func Default() Options {
	return Options{
		Bvh: BvhOptions{
			Enabled:     true,
			MaxLeafSize: DefaultMaxLeafSize,
		},
		ResourceRoot: "../resources",
	}
}

// Load options from a TOML file. Values missing from the file keep their
// defaults; unknown keys are rejected.
func Load(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("config: %w", err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(&opts); err != nil {
		return opts, fmt.Errorf("config: could not parse %s: %w", path, err)
	}

	return opts, opts.Validate()
}

// Check options for invalid values.
func (o Options) Validate() error {
	if o.Bvh.MaxLeafSize < 1 {
		return fmt.Errorf("config: bvh max_leaf_size must be >= 1; got %d", o.Bvh.MaxLeafSize)
	}
	return nil
}
