package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dchain-network/dchain/internal/auth"
	"github.com/dchain-network/dchain/internal/chain"
	"github.com/dchain-network/dchain/internal/cliapp"
	"github.com/dchain-network/dchain/internal/config"
	"github.com/dchain-network/dchain/internal/cryptoutil"
	"github.com/dchain-network/dchain/internal/diploma"
	"github.com/dchain-network/dchain/internal/log"
	"github.com/dchain-network/dchain/internal/mining"
	"github.com/dchain-network/dchain/internal/reward"
	"github.com/dchain-network/dchain/internal/server"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to config.toml",
		Value: "config.toml",
	}
	genesisFlag = &cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a JSON file with {diploma_data, public_key, signature} for a fresh chain's block 0",
	}
)

// genesisFile mirrors the ADD_BLOCK wire payload, reused here so the
// genesis block is constructed through the same NewBlock path as
// every later block.
type genesisFile struct {
	DiplomaData diploma.Record `json:"diploma_data"`
	PublicKey   string         `json:"public_key"`
	Signature   string         `json:"signature"`
}

var commandServe = &cli.Command{
	Name:  "serve",
	Usage: "run the diploma-chain TCP server",
	Flags: []cli.Flag{configFlag, genesisFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := config.Load(ctx.String(configFlag.Name))
		if err != nil && !os.IsNotExist(err) {
			cliapp.Fatalf("load config: %v", err)
		}

		lvl, err := log.ParseLevel(cfg.Server.LogLevel)
		if err != nil {
			lvl = log.LevelInfo
		}
		log.Root().SetLevel(lvl)
		rootLog := log.Root().New("component", "dchaind")

		bc, err := openChain(ctx, cfg)
		if err != nil {
			cliapp.Fatalf("open chain: %v", err)
		}

		reg := auth.NewRegistry(cfg.Server.UsersFile)
		cached, err := auth.NewCachedRegistry(reg, 1024, time.Duration(cfg.Server.AuthCacheTTL))
		if err != nil {
			cliapp.Fatalf("build auth cache: %v", err)
		}

		rl, err := reward.Open(cfg.Server.RewardsFile)
		if err != nil {
			cliapp.Fatalf("open reward ledger: %v", err)
		}

		queue := mining.NewQueue(cfg.Server.NonceRangeSize)
		state := server.NewState(bc, queue, rl, cached)
		router := server.NewRouter(state)
		srv := server.NewServer(cfg.Server.Bind, router)

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			rootLog.Info("shutting down")
			cancel()
		}()

		rootLog.Info("starting server", "bind", cfg.Server.Bind, "chain_dir", cfg.Server.ChainDir, "blocks", bc.Len())
		if err := srv.Run(runCtx); err != nil && runCtx.Err() == nil {
			cliapp.Fatalf("server error: %v", err)
		}
		return nil
	},
}

// openChain loads the chain directory named in cfg. When --genesis is
// given it is used to seed block 0 on a cold start; an already
// initialized chain directory ignores it.
func openChain(ctx *cli.Context, cfg config.Config) (*chain.Blockchain, error) {
	genesisPath := ctx.String(genesisFlag.Name)
	if genesisPath == "" {
		return chain.Open(cfg.Server.ChainDir, cfg.Server.Difficulty, nil, nil)
	}

	buf, err := os.ReadFile(genesisPath)
	if err != nil {
		return nil, err
	}
	var gf genesisFile
	if err := json.Unmarshal(buf, &gf); err != nil {
		return nil, err
	}
	gf.DiplomaData.Signature = gf.Signature
	pub, err := cryptoutil.DecodePublicKeyPEM([]byte(gf.PublicKey))
	if err != nil {
		return nil, err
	}
	return chain.Open(cfg.Server.ChainDir, cfg.Server.Difficulty, &gf.DiplomaData, pub)
}
