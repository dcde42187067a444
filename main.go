package main

import (
	"os"

	"github.com/achilleasa/lumen/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lumen"
	app.Usage = "compile scenes for GPU path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile scene documents into a binary compressed format",
			Description: `
Parse a scene document (json or yaml), load the referenced glTF meshes and
textures, build a BVH tree to optimize ray intersection tests and package
scene elements in a GPU-friendly format.

The optimized scene data is written to a zip archive next to each scene
document. With --watch, scenes are recompiled whenever they change.`,
			ArgsUsage: "scene_file1.json scene_file2.yaml ...",
			Flags: append([]cli.Flag{
				cli.BoolFlag{
					Name:  "watch, w",
					Usage: "recompile scenes when they change",
				},
			}, cmd.CompileFlags...),
			Action: cmd.CompileScene,
		},
		{
			Name:        "info",
			Usage:       "print scene statistics",
			Description: `Load a compiled scene (zip) or compile a scene document and print a summary of its contents.`,
			ArgsUsage:   "scene_file",
			Flags:       cmd.CompileFlags,
			Action:      cmd.ShowSceneInfo,
		},
	}

	app.Run(os.Args)
}
