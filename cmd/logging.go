package cmd

import (
	"github.com/achilleasa/lumen/log"
	"github.com/urfave/cli"
)

var logger = log.New("lumen")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// Log err and return an error that makes the cli app exit with status 1.
func exitError(err error) error {
	logger.Error(err.Error())
	return cli.NewExitError("", 1)
}
