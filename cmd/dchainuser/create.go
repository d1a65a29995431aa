package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/dchain-network/dchain/internal/auth"
	"github.com/dchain-network/dchain/internal/cliapp"
)

var (
	usersFileFlag = &cli.StringFlag{
		Name:  "users-file",
		Usage: "path to the user registry JSON file",
		Value: "users.json",
	}
	roleFlag = &cli.StringFlag{
		Name:  "role",
		Usage: "admin or miner",
		Value: "miner",
	}
)

var commandCreate = &cli.Command{
	Name:      "create",
	Usage:     "add a user to the registry file, prompting for a password",
	ArgsUsage: "<username>",
	Flags:     []cli.Flag{usersFileFlag, roleFlag},
	Action: func(ctx *cli.Context) error {
		username := ctx.Args().First()
		if username == "" {
			cliapp.Fatalf("create requires a username")
		}
		role := auth.Role(ctx.String(roleFlag.Name))
		if role != auth.RoleAdmin && role != auth.RoleMiner {
			cliapp.Fatalf("role must be %q or %q", auth.RoleAdmin, auth.RoleMiner)
		}

		path := ctx.String(usersFileFlag.Name)
		users, err := readUsers(path)
		if err != nil {
			cliapp.Fatalf("read %s: %v", path, err)
		}
		for _, u := range users {
			if u.Username == username {
				cliapp.Fatalf("user %q already exists", username)
			}
		}

		fmt.Print("Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			cliapp.Fatalf("read password: %v", err)
		}
		hash, err := auth.HashPassword(string(pw))
		if err != nil {
			cliapp.Fatalf("hash password: %v", err)
		}

		users = append(users, auth.User{Username: username, PasswordHash: hash, Role: role, Status: "active"})
		if err := writeUsers(path, users); err != nil {
			cliapp.Fatalf("write %s: %v", path, err)
		}
		fmt.Printf("created %s (%s)\n", username, role)
		return nil
	},
}

func readUsers(path string) ([]auth.User, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var users []auth.User
	if len(buf) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(buf, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func writeUsers(path string, users []auth.User) error {
	buf, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
