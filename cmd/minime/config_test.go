package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(data), 0600))
	return p
}

func TestLoadConfig(t *testing.T) {
	ctrl := util.Uint160{1, 2, 3}

	p := writeConfig(t, `
rpc: http://localhost:30333
timeout: 15s
wallet:
  path: wallet.json
  address: `+address.Uint160ToString(ctrl)+`
  password: pass
contract: contracts/minime
token:
  controller: `+ctrl.StringLE()+`
  name: MiniMe Token
  symbol: MMT
  decimals: 18
  transfers_enabled: true
  balance_limit: "1000000000000000000000000"
`)

	cfg, err := loadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:30333", cfg.RPC)
	require.Equal(t, 15*time.Second, cfg.timeout())
	require.Equal(t, "wallet.json", cfg.Wallet.Path)
	require.Equal(t, "contracts/minime", cfg.Contract)
	require.NoError(t, cfg.validateRPC())
	require.NoError(t, cfg.validateDeploy())

	s, err := cfg.Token.settings()
	require.NoError(t, err)
	require.NotNil(t, s.Controller)
	require.Equal(t, ctrl, *s.Controller)
	require.Equal(t, "MiniMe Token", s.Name)
	require.Equal(t, "MMT", s.Symbol)
	require.EqualValues(t, 18, s.Decimals)
	require.True(t, s.TransfersEnabled)
	require.Equal(t, "1000000000000000000000000", s.BalanceLimit.String())

	t.Run("unknown field", func(t *testing.T) {
		_, err := loadConfig(writeConfig(t, "rpc: http://localhost:30333\nendpoint: x\n"))
		require.Error(t, err)
	})

	t.Run("negative timeout", func(t *testing.T) {
		_, err := loadConfig(writeConfig(t, "timeout: -1s\n"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfigValidate(t *testing.T) {
	var cfg Config

	require.Equal(t, defaultTimeout, cfg.timeout())
	require.ErrorIs(t, cfg.validateRPC(), errMissingRPC)
	require.ErrorIs(t, cfg.validateDeploy(), errMissingRPC)

	cfg.RPC = "http://localhost:30333"
	require.NoError(t, cfg.validateRPC())
	require.Error(t, cfg.validateDeploy())

	cfg.Wallet.Path = "wallet.json"
	require.Error(t, cfg.validateDeploy())

	cfg.Contract = "contracts/minime"
	require.NoError(t, cfg.validateDeploy())
}

func TestTokenConfigSettings(t *testing.T) {
	s, err := TokenConfig{Symbol: "MMT"}.settings()
	require.NoError(t, err)
	require.Nil(t, s.Controller)
	require.Nil(t, s.BalanceLimit)

	_, err = TokenConfig{Symbol: "MMT", Controller: "not an account"}.settings()
	require.Error(t, err)

	_, err = TokenConfig{Symbol: "MMT", BalanceLimit: "12e3"}.settings()
	require.Error(t, err)
}

func TestParseAccount(t *testing.T) {
	u := util.Uint160{0xde, 0xad, 0xbe, 0xef}

	res, err := parseAccount(address.Uint160ToString(u))
	require.NoError(t, err)
	require.Equal(t, u, res)

	res, err = parseAccount(u.StringLE())
	require.NoError(t, err)
	require.Equal(t, u, res)

	_, err = parseAccount("")
	require.Error(t, err)

	_, err = parseAccount("0x0102")
	require.Error(t, err)
}
