package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dchain-network/dchain/internal/cliapp"
)

var app = cliapp.NewApp("user registry manager for the diploma-chain server")

func init() {
	app.Commands = []*cli.Command{
		commandCreate,
		commandList,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
