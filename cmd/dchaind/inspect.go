package main

import (
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/dchain-network/dchain/internal/chain"
	"github.com/dchain-network/dchain/internal/cliapp"
)

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "print a table of every block in a chain directory",
	ArgsUsage: "<chain-dir>",
	Action: func(ctx *cli.Context) error {
		dir := ctx.Args().First()
		if dir == "" {
			cliapp.Fatalf("inspect requires a chain directory")
		}

		// difficulty is unused for a read-only open of an already
		// initialized chain; it only governs newly mined blocks.
		bc, err := chain.Open(dir, chain.DefaultDifficulty, nil, nil)
		if err != nil {
			cliapp.Fatalf("open %s: %v", dir, err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Prev Hash", "Timestamp", "Difficulty", "Institution", "Full Name"})
		for id := 0; id < bc.Len(); id++ {
			b, ok := bc.Get(id)
			if !ok {
				continue
			}
			prev := b.PrevHash
			if len(prev) > 8 {
				prev = prev[:8]
			}
			table.Append([]string{
				strconv.Itoa(b.ID),
				prev,
				time.Unix(b.Timestamp, 0).UTC().Format(time.RFC3339),
				strconv.Itoa(b.Difficulty),
				b.DiplomaData.Institution,
				b.DiplomaData.FullName,
			})
		}
		table.Render()
		return nil
	},
}
