// pvm deploys and drives native contracts on an in-memory executor.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	// Programs available to artifacts.
	_ "github.com/pvmlabs/ballot/contracts/ballot"
)

var (
	VerbosityFlag = &cli.IntFlag{
		Name:    "verbosity",
		Usage:   "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:   2,
		EnvVars: []string{"PVM_VERBOSITY"},
	}
	MetricsFlag = &cli.BoolFlag{
		Name:    "metrics",
		Usage:   "Collect and report storage access metrics",
		EnvVars: []string{"PVM_METRICS"},
	}
	TraceFlag = &cli.BoolFlag{
		Name:    "trace",
		Usage:   "Log every transaction and storage change",
		EnvVars: []string{"PVM_TRACE"},
	}
)

var app = &cli.App{
	Name:  "pvm",
	Usage: "native contract runner",
	Flags: []cli.Flag{
		VerbosityFlag,
		MetricsFlag,
		TraceFlag,
	},
	Commands: []*cli.Command{
		artifactCommand,
		runCommand,
		programsCommand,
	},
	Before: func(ctx *cli.Context) error {
		setupLogging(ctx.Int(VerbosityFlag.Name))
		if ctx.Bool(MetricsFlag.Name) {
			metrics.Enable()
		}
		return nil
	},
}

func setupLogging(verbosity int) {
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(verbosity), !color.NoColor)
	log.SetDefault(log.NewLogger(handler))
}

func main() {
	// Flag values may come from a .env file in the working directory.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env file:", err)
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
