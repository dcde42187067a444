package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/lumen/asset/scene/reader"
	"github.com/achilleasa/lumen/asset/scene/writer"
	"github.com/achilleasa/lumen/config"
	"github.com/urfave/cli"
)

// Compile scene documents to binary format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return exitError(errors.New("missing scene document"))
	}

	opts, err := buildOptions(ctx)
	if err != nil {
		return exitError(err)
	}

	sceneFiles := make([]string, 0, ctx.NArg())
	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if reader.IsCompiledScene(sceneFile) {
			logger.Warningf("skipping already compiled scene %s", sceneFile)
			continue
		}
		sceneFiles = append(sceneFiles, sceneFile)

		if err = compileScene(sceneFile, opts); err != nil {
			if !ctx.Bool("watch") {
				return exitError(err)
			}
			logger.Error(err.Error())
		}
	}

	if !ctx.Bool("watch") || len(sceneFiles) == 0 {
		return nil
	}

	err = watchScenes(sceneFiles, interruptChan(), func(sceneFile string) {
		if err := compileScene(sceneFile, opts); err != nil {
			logger.Error(err.Error())
		}
	})
	if err != nil {
		return exitError(err)
	}
	return nil
}

func compileScene(sceneFile string, opts config.Options) error {
	logger.Noticef("parsing and compiling scene: %s", sceneFile)
	sc, warnings, err := reader.ReadScene(sceneFile, opts)
	if err != nil {
		return err
	}
	if len(warnings) != 0 {
		logger.Warningf("scene compiled with %d warnings", len(warnings))
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())

	return writer.WriteScene(sc, compiledSceneFile(sceneFile))
}

// Get the path of the zip archive for a scene document.
func compiledSceneFile(sceneFile string) string {
	return strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".zip"
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return exitError(errors.New("missing scene file"))
	}

	opts, err := buildOptions(ctx)
	if err != nil {
		return exitError(err)
	}

	sceneFile := ctx.Args().First()
	sc, warnings, err := reader.ReadScene(sceneFile, opts)
	if err != nil {
		return exitError(err)
	}

	// Display compiled scene info
	info := fmt.Sprintf("build: %s, max leaf size: %d, warnings: %d", sc.BuildID, sc.MaxLeafSize, len(warnings))
	logger.Noticef("scene information (%s):\n%s", info, sc.Stats())

	return nil
}
