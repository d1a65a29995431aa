package main

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/dchain-network/dchain/internal/cliapp"
)

var commandList = &cli.Command{
	Name:  "list",
	Usage: "print every user in the registry file",
	Flags: []cli.Flag{usersFileFlag},
	Action: func(ctx *cli.Context) error {
		path := ctx.String(usersFileFlag.Name)
		users, err := readUsers(path)
		if err != nil {
			cliapp.Fatalf("read %s: %v", path, err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Username", "Role", "Status"})
		for _, u := range users {
			table.Append([]string{u.Username, string(u.Role), u.Status})
		}
		table.Render()
		return nil
	},
}
