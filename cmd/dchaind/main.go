package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dchain-network/dchain/internal/cliapp"
)

var app = cliapp.NewApp("permissioned diploma-chain server")

func init() {
	app.Commands = []*cli.Command{
		commandServe,
		commandInspect,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
