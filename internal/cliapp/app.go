// Package cliapp holds small helpers shared by the dchaind, dchainkey
// and dchainuser command-line entrypoints.
package cliapp

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// NewApp creates an urfave/cli app with the conventions shared across
// this project's binaries.
func NewApp(usage string) *cli.App {
	app := cli.NewApp()
	app.Usage = usage
	app.HideVersion = true
	return app
}

// Fatalf prints an error to stderr and exits with status 1. It must
// only be called from command-line entrypoints, never from library
// code used by the server.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}
