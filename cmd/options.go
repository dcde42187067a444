package cmd

import (
	"github.com/achilleasa/lumen/config"
	"github.com/urfave/cli"
)

// Flags that control scene compilation.
var CompileFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "load compilation options from a TOML file",
	},
	cli.IntFlag{
		Name:  "max-leaf-size",
		Value: config.DefaultMaxLeafSize,
		Usage: "max number of triangles in a BVH leaf",
	},
	cli.BoolFlag{
		Name:  "parallel-bvh",
		Usage: "build BVH subtrees concurrently",
	},
	cli.BoolFlag{
		Name:  "no-bvh",
		Usage: "skip BVH construction",
	},
	cli.BoolFlag{
		Name:  "dof",
		Usage: "read depth of field parameters from the scene camera",
	},
	cli.StringFlag{
		Name:  "skybox",
		Usage: "environment map image (relative to the scene file)",
	},
	cli.StringFlag{
		Name:  "resource-root",
		Usage: "folder with mesh assets referenced by name (relative to the scene file)",
	},
}

// Resolve compilation options. Values from the optional config file are
// overridden by any explicitly set flags.
func buildOptions(ctx *cli.Context) (config.Options, error) {
	opts := config.Default()

	var err error
	if cfgFile := ctx.String("config"); cfgFile != "" {
		logger.Infof("loading compilation options from %s", cfgFile)
		if opts, err = config.Load(cfgFile); err != nil {
			return opts, err
		}
	}

	if ctx.IsSet("max-leaf-size") {
		opts.Bvh.MaxLeafSize = ctx.Int("max-leaf-size")
	}
	if ctx.Bool("parallel-bvh") {
		opts.Bvh.Parallel = true
	}
	if ctx.Bool("no-bvh") {
		opts.Bvh.Enabled = false
	}
	if ctx.Bool("dof") {
		opts.DepthOfField = true
	}
	if ctx.IsSet("skybox") {
		opts.Skybox = ctx.String("skybox")
	}
	if ctx.IsSet("resource-root") {
		opts.ResourceRoot = ctx.String("resource-root")
	}

	return opts, opts.Validate()
}
