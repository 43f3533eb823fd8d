package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pvmlabs/ballot/pvm"
	"github.com/urfave/cli/v2"
)

var artifactCommand = &cli.Command{
	Name:  "artifact",
	Usage: "Write the deployable artifact of a registered program",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "Program name",
			Value: "ballot",
		},
		&cli.StringFlag{
			Name:     "out",
			Usage:    "Output file",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "payload",
			Usage: "Hex payload stored in the artifact",
		},
	},
	Action: artifactCmd,
}

func artifactCmd(ctx *cli.Context) error {
	name := ctx.String("name")
	if _, ok := pvm.Lookup(name); !ok {
		return fmt.Errorf("%w: %q", pvm.ErrUnknownProgram, name)
	}
	var payload []byte
	if p := ctx.String("payload"); p != "" {
		var err error
		if payload, err = hexutil.Decode(p); err != nil {
			return fmt.Errorf("invalid payload: %v", err)
		}
	}
	out := ctx.String("out")
	if err := pvm.WriteArtifact(out, pvm.NewArtifact(name, payload)); err != nil {
		return err
	}
	log.Info("Wrote artifact", "program", name, "file", out)
	return nil
}

var programsCommand = &cli.Command{
	Name:  "programs",
	Usage: "List the registered programs",
	Action: func(ctx *cli.Context) error {
		for _, name := range pvm.Programs() {
			fmt.Fprintln(ctx.App.Writer, name)
		}
		return nil
	},
}
