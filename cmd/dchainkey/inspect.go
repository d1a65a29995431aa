package main

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/dchain-network/dchain/internal/cliapp"
	"github.com/dchain-network/dchain/internal/cryptoutil"
)

var decryptFlag = &cli.BoolFlag{
	Name:  "decrypt",
	Usage: "the keyfile is passphrase-encrypted; prompt for it before inspecting",
}

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "print the modulus size and key type of a keyfile",
	ArgsUsage: "<keyfile.pem>",
	Flags:     []cli.Flag{decryptFlag},
	Action: func(ctx *cli.Context) error {
		path := ctx.Args().First()
		if path == "" {
			cliapp.Fatalf("inspect requires a keyfile path")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			cliapp.Fatalf("read %s: %v", path, err)
		}

		if pub, err := cryptoutil.DecodePublicKeyPEM(data); err == nil {
			fmt.Printf("type: public key\nbits: %d\n", pub.N.BitLen())
			return nil
		}

		var priv *rsa.PrivateKey
		if ctx.Bool(decryptFlag.Name) {
			fmt.Print("Passphrase: ")
			passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				cliapp.Fatalf("read passphrase: %v", err)
			}
			priv, err = cryptoutil.DecodePrivateKeyPEMEncrypted(data, passphrase)
			if err != nil {
				cliapp.Fatalf("decrypt %s: %v", path, err)
			}
		} else {
			priv, err = cryptoutil.DecodePrivateKeyPEM(data)
			if err != nil {
				cliapp.Fatalf("parse %s: not a recognizable public or private key (%v)", path, err)
			}
		}
		fmt.Printf("type: private key\nbits: %d\n", priv.N.BitLen())
		return nil
	},
}
