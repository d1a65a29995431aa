package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dchain-network/dchain/internal/cliapp"
)

var app = cliapp.NewApp("RSA keypair manager for diploma-signing identities")

func init() {
	app.Commands = []*cli.Command{
		commandGenerate,
		commandInspect,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
