package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// env is shared by all commands, it's initialized before any command runs.
type env struct {
	cfg *Config
	log *zap.Logger
}

func newApp() *cli.App {
	e := new(env)

	app := cli.NewApp()
	app.Name = "minime"
	app.Usage = "Deploy, inspect and audit MiniMe token contracts"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "Path to the YAML configuration file"},
		cli.StringFlag{Name: "rpc, r", Usage: "Neo RPC endpoint, overrides configuration"},
		cli.BoolFlag{Name: "debug, d", Usage: "Enable debug logging"},
	}
	app.Before = e.init
	app.After = e.close
	app.Commands = []cli.Command{
		{
			Name:   "deploy",
			Usage:  "Deploy token configured in the configuration file",
			Action: e.deploy,
		},
		{
			Name:  "clone",
			Usage: "Deploy clone of the token starting from its balances at the snapshot block",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "parent", Usage: "Parent token address"},
				cli.Uint64Flag{Name: "snapshot", Usage: "Parent snapshot block, the latest one by default"},
				cli.StringFlag{Name: "name", Usage: "Clone token name, overrides configuration"},
				cli.StringFlag{Name: "symbol", Usage: "Clone token symbol, overrides configuration"},
			},
			Action: e.clone,
		},
		{
			Name:  "balance",
			Usage: "Print balance of the account",
			Flags: []cli.Flag{
				tokenFlag,
				cli.StringFlag{Name: "account, a", Usage: "Account address"},
				atFlag,
			},
			Action: e.balance,
		},
		{
			Name:   "supply",
			Usage:  "Print total supply of the token",
			Flags:  []cli.Flag{tokenFlag, atFlag},
			Action: e.supply,
		},
		{
			Name:  "history",
			Usage: "Print checkpoints of the account balance or of the total supply",
			Flags: []cli.Flag{
				tokenFlag,
				cli.StringFlag{Name: "account, a", Usage: "Account address, total supply history if omitted"},
			},
			Action: e.history,
		},
		{
			Name:  "dump",
			Usage: "Dump states and storages of the tokens and their parents",
			Flags: []cli.Flag{
				cli.StringSliceFlag{Name: "token, t", Usage: "Token address, can be repeated"},
				cli.StringFlag{Name: "label, l", Usage: "Label of the blockchain environment (e.g. 'testnet')"},
				cli.StringFlag{Name: "dir", Value: "testdata", Usage: "Dump directory"},
				cli.Uint64Flag{Name: "block", Usage: "Block to dump the state at, the latest one by default"},
			},
			Action: e.dump,
		},
		{
			Name:  "audit",
			Usage: "Audit ledgers of the dumped tokens",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "dir", Value: "testdata", Usage: "Dump directory"},
				cli.StringFlag{Name: "label, l", Usage: "Audit dumps with this label only"},
			},
			Action: e.audit,
		},
	}

	return app
}

var (
	tokenFlag = cli.StringFlag{Name: "token, t", Usage: "Token address"}
	atFlag    = cli.Int64Flag{Name: "at", Value: -1, Usage: "Block to read the value at, the latest one by default"}
)

func (e *env) init(c *cli.Context) error {
	var err error

	e.log, err = newLogger(c.GlobalBool("debug"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if path := c.GlobalString("config"); path != "" {
		e.cfg, err = loadConfig(path)
		if err != nil {
			return err
		}
	} else {
		e.cfg = new(Config)
	}

	if rpc := c.GlobalString("rpc"); rpc != "" {
		e.cfg.RPC = rpc
	}

	return nil
}

func (e *env) close(*cli.Context) error {
	if e.log != nil {
		_ = e.log.Sync()
	}
	return nil
}

func (e *env) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.timeout())
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
