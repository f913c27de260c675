package main

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/nspcc-dev/minime-contract/contracts/minime/minimeconst"
	"github.com/nspcc-dev/minime-contract/dump"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

// writeTokenDump stores dump of the single token which supply history is
// given explicitly and all tokens belong to one holder.
func writeTokenDump(t *testing.T, dir string, label string, supply int64, balance int64) {
	n, err := nef.NewFile([]byte{0x40})
	require.NoError(t, err)

	token := util.Uint160{0x70}
	holder := util.Uint160{0xa1}

	c, err := dump.NewCreator(dir, dump.ID{Label: label, Block: 10})
	require.NoError(t, err)
	defer c.Close()

	w, err := c.AddContract("token", state.Contract{
		ContractBase: state.ContractBase{
			ID:       1,
			Hash:     token,
			NEF:      *n,
			Manifest: *manifest.NewManifest("MiniMe"),
		},
	})
	require.NoError(t, err)

	put := func(k, v []byte) { require.NoError(t, w.Write(k, v)) }
	int64Bytes := func(v int64) []byte { return bigint.ToBytes(big.NewInt(v)) }
	history := func(key []byte, block, v int64) {
		data, err := stackitem.Serialize(stackitem.NewStruct([]stackitem.Item{
			stackitem.Make(block),
			stackitem.Make(v),
		}))
		require.NoError(t, err)

		put(append([]byte{minimeconst.CheckpointPrefix}, key...), data)
		put(append([]byte{minimeconst.CheckpointCountPrefix}, key...), int64Bytes(1))
	}

	limit, _ := new(big.Int).SetString(minimeconst.DefaultBalanceLimit, 10)

	put([]byte(minimeconst.ControllerKey), holder.BytesBE())
	put([]byte(minimeconst.ParentSnapShotBlockKey), int64Bytes(0))
	put([]byte(minimeconst.CreationBlockKey), int64Bytes(1))
	put([]byte(minimeconst.NameKey), []byte("MiniMe Token"))
	put([]byte(minimeconst.DecimalsKey), int64Bytes(0))
	put([]byte(minimeconst.SymbolKey), []byte("MMT"))
	put([]byte(minimeconst.TransfersEnabledKey), []byte{1})
	put([]byte(minimeconst.BalanceLimitKey), bigint.ToBytes(limit))

	history([]byte{minimeconst.SupplyHistoryKey}, 5, supply)
	history(append([]byte{minimeconst.AccountHistoryPrefix}, holder.BytesBE()...), 5, balance)

	require.NoError(t, c.Flush())
}

func runApp(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer

	app := newApp()
	app.Writer = &out

	err := app.Run(append([]string{"minime"}, args...))

	return out.String(), err
}

func TestAuditCommand(t *testing.T) {
	dir := t.TempDir()

	writeTokenDump(t, dir, "good", 100, 100)

	out, err := runApp(t, "audit", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "good-10 token: accounts 1, supply 100, sum of balances 100")

	writeTokenDump(t, dir, "bad", 100, 70)

	out, err = runApp(t, "audit", "--dir", dir)
	require.ErrorIs(t, err, errLedgerViolated)
	require.Contains(t, out, "conservation")

	out, err = runApp(t, "audit", "--dir", dir, "--label", "good")
	require.NoError(t, err)
	require.NotContains(t, out, "bad-10")
}

func TestCommandsRequireRPC(t *testing.T) {
	for _, args := range [][]string{
		{"supply", "--token", util.Uint160{1}.StringLE()},
		{"balance", "--token", util.Uint160{1}.StringLE(), "--account", util.Uint160{2}.StringLE()},
		{"dump", "--token", util.Uint160{1}.StringLE(), "--label", "testnet"},
	} {
		_, err := runApp(t, args...)
		require.ErrorIs(t, err, errMissingRPC, args)
	}

	_, err := runApp(t, "balance", "--token", util.Uint160{1}.StringLE())
	require.ErrorContains(t, err, "--account")

	_, err = runApp(t, "deploy")
	require.ErrorIs(t, err, errMissingRPC)
}
