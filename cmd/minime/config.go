package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/nspcc-dev/minime-contract/deploy"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"gopkg.in/yaml.v3"
)

const defaultTimeout = time.Minute

// Config is a configuration of the minime tool read from the YAML file.
//
//	rpc: http://localhost:30333
//	timeout: 1m
//	wallet:
//	  path: wallet.json
//	  address: NbUgTSFvPmsRxmGeWpuuGeJUoRoi6PErcM
//	  password: pass
//	contract: contracts/minime
//	token:
//	  name: MiniMe Token
//	  symbol: MMT
//	  decimals: 18
//	  transfers_enabled: true
//	  balance_limit: "1000000000000000000000000"
type Config struct {
	RPC     string        `yaml:"rpc"`
	Timeout time.Duration `yaml:"timeout"`
	Wallet  WalletConfig  `yaml:"wallet"`
	// Directory with compiled contract.nef and manifest.json.
	Contract string      `yaml:"contract"`
	Token    TokenConfig `yaml:"token"`
}

// WalletConfig points to the account used to sign transactions.
type WalletConfig struct {
	Path     string `yaml:"path"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// TokenConfig holds parameters of the deployed token.
type TokenConfig struct {
	// Address or LE hex of the controller, deploying account by default.
	Controller       string `yaml:"controller"`
	Name             string `yaml:"name"`
	Symbol           string `yaml:"symbol"`
	Decimals         uint8  `yaml:"decimals"`
	TransfersEnabled bool   `yaml:"transfers_enabled"`
	// Decimal string, contract default is used if empty.
	BalanceLimit string `yaml:"balance_limit"`
}

var errMissingRPC = errors.New("missing Neo RPC endpoint")

// loadConfig reads configuration from the YAML file. Unknown fields are
// rejected.
func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var cfg Config

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	err = dec.Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config file '%s': %w", path, err)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("negative timeout %s", cfg.Timeout)
	}

	return &cfg, nil
}

func (c *Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c *Config) validateRPC() error {
	if c.RPC == "" {
		return errMissingRPC
	}
	return nil
}

func (c *Config) validateDeploy() error {
	switch {
	case c.RPC == "":
		return errMissingRPC
	case c.Wallet.Path == "":
		return errors.New("missing wallet path")
	case c.Contract == "":
		return errors.New("missing compiled contract directory")
	}
	return nil
}

// settings converts token configuration into deployment settings.
func (c TokenConfig) settings() (deploy.TokenSettings, error) {
	res := deploy.TokenSettings{
		Name:             c.Name,
		Symbol:           c.Symbol,
		Decimals:         c.Decimals,
		TransfersEnabled: c.TransfersEnabled,
	}

	if c.Controller != "" {
		ctrl, err := parseAccount(c.Controller)
		if err != nil {
			return res, fmt.Errorf("invalid controller: %w", err)
		}
		res.Controller = &ctrl
	}

	if c.BalanceLimit != "" {
		limit, ok := new(big.Int).SetString(c.BalanceLimit, 10)
		if !ok {
			return res, fmt.Errorf("invalid balance limit '%s'", c.BalanceLimit)
		}
		res.BalanceLimit = limit
	}

	return res, nil
}

// parseAccount decodes Neo address or little-endian hex script hash.
func parseAccount(s string) (util.Uint160, error) {
	u, err := address.StringToUint160(s)
	if err == nil {
		return u, nil
	}

	u, hexErr := util.Uint160DecodeStringLE(s)
	if hexErr != nil {
		return util.Uint160{}, fmt.Errorf("'%s' is neither an address (%v) nor a script hash (%v)", s, err, hexErr)
	}

	return u, nil
}
