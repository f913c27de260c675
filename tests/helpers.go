package tests

import (
	"math/big"
	"path"
	"testing"

	"github.com/nspcc-dev/minime-contract/contracts/minime/minimeconst"
	"github.com/nspcc-dev/minime-contract/deploy"
	"github.com/nspcc-dev/minime-contract/rpc/minime"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const (
	minimePath    = "../contracts/minime"
	tokenCtrlPath = "../internal/testcontracts/tokenctrl"
)

// ether is 10^18, a single token with 18 decimals.
var ether = big.NewInt(1_000_000_000_000_000_000)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), ether)
}

func maxUint128() *big.Int {
	v, _ := new(big.Int).SetString(minimeconst.DefaultBalanceLimit, 10)
	return v
}

func newExecutor(t *testing.T) *neotest.Executor {
	bc, acc := chain.NewSingle(t)
	return neotest.NewExecutor(t, bc, acc, acc)
}

func iteratorToArray(iter *storage.Iterator) []stackitem.Item {
	stackItems := make([]stackitem.Item, 0)
	for iter.Next() {
		stackItems = append(stackItems, iter.Value())
	}
	return stackItems
}

// tokenPrm groups deployment parameters of the test token. Zero value
// describes a root token controlled by the committee with enabled transfers
// and the default balance limit.
type tokenPrm struct {
	controller *util.Uint160
	parent     *util.Uint160
	snapshot   uint32
	disabled   bool
	limit      *big.Int
}

func (x tokenPrm) data() []any {
	var controller, parent, limit any
	if x.controller != nil {
		controller = *x.controller
	}
	if x.parent != nil {
		parent = *x.parent
	}
	if x.limit != nil {
		limit = x.limit
	}

	return []any{controller, parent, int64(x.snapshot), "MiniMe Test Token", int64(18), "MMT", !x.disabled, limit}
}

// deployToken deploys MiniMe token and returns the committee invoker of it.
// Clone tokens get the manifest name the deploy package gives them, so any
// number of clones may be deployed by the committee.
func deployToken(t *testing.T, e *neotest.Executor, prm tokenPrm) *neotest.ContractInvoker {
	ctr := tokenContract(t, e, prm)
	e.DeployContract(t, ctr, prm.data())
	return e.CommitteeInvoker(ctr.Hash)
}

func tokenContract(t *testing.T, e *neotest.Executor, prm tokenPrm) *neotest.Contract {
	ctr := neotest.CompileFile(t, e.CommitteeHash, minimePath, path.Join(minimePath, "config.yml"))
	if prm.parent == nil {
		return ctr
	}

	m := deploy.CloneManifest(*ctr.Manifest, *prm.parent, prm.snapshot)

	return &neotest.Contract{
		Hash:     state.CreateContractHash(e.CommitteeHash, ctr.NEF.Checksum, m.Name),
		NEF:      ctr.NEF,
		Manifest: &m,
	}
}

func deployTokenController(t *testing.T, e *neotest.Executor) *neotest.ContractInvoker {
	ctr := neotest.CompileFile(t, e.CommitteeHash, tokenCtrlPath, path.Join(tokenCtrlPath, "config.yml"))
	e.DeployContract(t, ctr, nil)
	return e.CommitteeInvoker(ctr.Hash)
}

func testInvokeItem(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) stackitem.Item {
	s, err := c.TestInvoke(t, method, args...)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	return s.Pop().Item()
}

func testInvokeInt(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) *big.Int {
	v, err := testInvokeItem(t, c, method, args...).TryInteger()
	require.NoError(t, err)
	return v
}

func testInvokeBool(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) bool {
	v, err := testInvokeItem(t, c, method, args...).TryBool()
	require.NoError(t, err)
	return v
}

func testInvokeHash(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) util.Uint160 {
	b, err := testInvokeItem(t, c, method, args...).TryBytes()
	require.NoError(t, err)
	u, err := util.Uint160DecodeBytesBE(b)
	require.NoError(t, err)
	return u
}

func testInvokeString(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) string {
	b, err := testInvokeItem(t, c, method, args...).TryBytes()
	require.NoError(t, err)
	return string(b)
}

func requireBalance(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160, expected *big.Int) {
	require.Zero(t, expected.Cmp(testInvokeInt(t, c, "balanceOf", acc)),
		"balance of %s: expected %s", acc.StringLE(), expected)
}

func requireBalanceAt(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160, block uint32, expected *big.Int) {
	require.Zero(t, expected.Cmp(testInvokeInt(t, c, "balanceOfAt", acc, int64(block))),
		"balance of %s at %d: expected %s", acc.StringLE(), block, expected)
}

func requireSupply(t *testing.T, c *neotest.ContractInvoker, expected *big.Int) {
	require.Zero(t, expected.Cmp(testInvokeInt(t, c, "totalSupply")),
		"total supply: expected %s", expected)
}

func requireSupplyAt(t *testing.T, c *neotest.ContractInvoker, block uint32, expected *big.Int) {
	require.Zero(t, expected.Cmp(testInvokeInt(t, c, "totalSupplyAt", int64(block))),
		"total supply at %d: expected %s", block, expected)
}

// history returns checkpoints of the iterator returned by the method.
func history(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) []*minime.MinimeCheckpoint {
	s, err := c.TestInvoke(t, method, args...)
	require.NoError(t, err)

	iter := s.Pop().Value().(*storage.Iterator)

	cps, err := minime.Checkpoints(iteratorToArray(iter))
	require.NoError(t, err)

	return cps
}

// requireTransferEvent checks that the transaction produced the only Transfer
// notification of the token. Nil from or to stands for the null account.
func requireTransferEvent(t *testing.T, c *neotest.ContractInvoker, h util.Uint256, from, to *util.Uint160, amount *big.Int) {
	var events []state.NotificationEvent
	for _, ev := range c.CheckHalt(t, h).Events {
		if ev.Name == "Transfer" && ev.ScriptHash.Equals(c.Hash) {
			events = append(events, ev)
		}
	}
	require.Len(t, events, 1)

	arr := events[0].Item.Value().([]stackitem.Item)
	require.Len(t, arr, 3)

	requireAccountItem(t, from, arr[0])
	requireAccountItem(t, to, arr[1])

	v, err := arr[2].TryInteger()
	require.NoError(t, err)
	require.Zero(t, amount.Cmp(v), "transferred amount: expected %s, got %s", amount, v)
}

func requireAccountItem(t *testing.T, expected *util.Uint160, item stackitem.Item) {
	if expected == nil {
		require.IsType(t, stackitem.Null{}, item)
		return
	}

	b, err := item.TryBytes()
	require.NoError(t, err)
	require.Equal(t, expected.BytesBE(), b)
}

// applicationLog returns application log of the persisted transaction in the
// form RPC clients receive it.
func applicationLog(t *testing.T, c *neotest.ContractInvoker, h util.Uint256) *result.ApplicationLog {
	aer := c.CheckHalt(t, h)
	return &result.ApplicationLog{
		Container:  aer.Container,
		Executions: []state.Execution{aer.Execution},
	}
}

// height returns index of the latest block.
func height(c *neotest.ContractInvoker) uint32 {
	return c.Chain.BlockHeight()
}
