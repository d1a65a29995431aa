package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/dchain-network/dchain/internal/cliapp"
	"github.com/dchain-network/dchain/internal/cryptoutil"
)

var (
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "base path for the generated <out>.pub.pem and <out>.key.pem files",
		Value: "identity",
	}
	encryptFlag = &cli.BoolFlag{
		Name:  "encrypt",
		Usage: "prompt for a passphrase and encrypt the exported private key",
	}
)

var commandGenerate = &cli.Command{
	Name:  "generate",
	Usage: "generate a new RSA-2048 signing keypair",
	Flags: []cli.Flag{outFlag, encryptFlag},
	Action: func(ctx *cli.Context) error {
		out := ctx.String(outFlag.Name)
		pubPath := out + ".pub.pem"
		keyPath := out + ".key.pem"

		if _, err := os.Stat(pubPath); err == nil {
			cliapp.Fatalf("public key already exists at %s", pubPath)
		}
		if _, err := os.Stat(keyPath); err == nil {
			cliapp.Fatalf("private key already exists at %s", keyPath)
		}

		priv, err := cryptoutil.GenerateKey()
		if err != nil {
			cliapp.Fatalf("generate key: %v", err)
		}
		pubPEM, err := cryptoutil.EncodePublicKeyPEM(&priv.PublicKey)
		if err != nil {
			cliapp.Fatalf("encode public key: %v", err)
		}

		var keyPEM []byte
		if ctx.Bool(encryptFlag.Name) {
			passphrase, err := promptPassphrase()
			if err != nil {
				cliapp.Fatalf("read passphrase: %v", err)
			}
			keyPEM, err = cryptoutil.EncodePrivateKeyPEMEncrypted(priv, passphrase)
			if err != nil {
				cliapp.Fatalf("encrypt private key: %v", err)
			}
		} else {
			keyPEM, err = cryptoutil.EncodePrivateKeyPEM(priv)
			if err != nil {
				cliapp.Fatalf("encode private key: %v", err)
			}
		}

		if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
			cliapp.Fatalf("write %s: %v", pubPath, err)
		}
		if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
			cliapp.Fatalf("write %s: %v", keyPath, err)
		}

		fmt.Printf("wrote %s and %s\n", pubPath, keyPath)
		return nil
	},
}

// promptPassphrase reads a passphrase from the controlling terminal
// twice, with input hidden, and confirms both entries match.
func promptPassphrase() ([]byte, error) {
	fmt.Print("Passphrase: ")
	p1, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	fmt.Print("Confirm passphrase: ")
	p2, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	if string(p1) != string(p2) {
		return nil, fmt.Errorf("passphrases did not match")
	}
	return p1, nil
}
