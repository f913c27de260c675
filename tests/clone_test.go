package tests

import (
	"math/big"
	"testing"

	"github.com/nspcc-dev/minime-contract/contracts/minime/minimeconst"
	"github.com/stretchr/testify/require"
)

func TestCloneToken(t *testing.T) {
	e := newExecutor(t)
	p := deployToken(t, e, tokenPrm{})

	acc1 := p.NewAccount(t)
	h1, h2 := acc1.ScriptHash(), p.NewAccount(t).ScriptHash()
	p1 := p.WithSigners(acc1)

	p.Invoke(t, true, "generateTokens", h1, 100)
	b1 := height(p)
	p1.Invoke(t, true, "transfer", h1, h2, 30, nil)
	snapshot := height(p)
	p1.Invoke(t, true, "transfer", h1, h2, 20, nil)

	c := deployToken(t, e, tokenPrm{parent: &p.Hash, snapshot: snapshot})
	c1 := c.WithSigners(acc1)

	require.NotEqual(t, p.Hash, c.Hash)
	require.Equal(t, p.Hash, testInvokeHash(t, c, "parentToken"))
	require.EqualValues(t, snapshot, testInvokeInt(t, c, "parentSnapShotBlock").Int64())

	// balances are inherited from the snapshot block
	requireBalance(t, c, h1, big.NewInt(70))
	requireBalance(t, c, h2, big.NewInt(30))
	requireSupply(t, c, big.NewInt(100))
	requireBalanceAt(t, c, h1, b1, big.NewInt(100))
	requireBalanceAt(t, c, h2, b1, big.NewInt(0))
	requireSupplyAt(t, c, b1, big.NewInt(100))
	require.Empty(t, history(t, c, "balanceHistory", h1))

	c1.Invoke(t, true, "transfer", h1, h2, 10, nil)
	cb := height(c)

	requireBalance(t, c, h1, big.NewInt(60))
	requireBalance(t, c, h2, big.NewInt(40))
	requireBalanceAt(t, c, h1, cb-1, big.NewInt(70))
	requireCheckpoints(t, history(t, c, "balanceHistory", h1), cb, 60)

	// the parent is not affected
	requireBalance(t, p, h1, big.NewInt(50))
	requireBalance(t, p, h2, big.NewInt(50))

	c.Invoke(t, true, "generateTokens", h2, 5)
	requireSupply(t, c, big.NewInt(105))
	requireSupply(t, p, big.NewInt(100))
	requireCheckpoints(t, history(t, c, "supplyHistory"), height(c), 105)

	t.Run("clone of clone", func(t *testing.T) {
		cc := deployToken(t, e, tokenPrm{parent: &c.Hash, snapshot: height(c)})

		requireBalance(t, cc, h1, big.NewInt(60))
		requireBalance(t, cc, h2, big.NewInt(45))
		requireBalanceAt(t, cc, h1, b1, big.NewInt(100))
		requireSupply(t, cc, big.NewInt(105))
	})
}

func TestCloneFutureSnapshot(t *testing.T) {
	e := newExecutor(t)
	p := deployToken(t, e, tokenPrm{})

	acc1 := p.NewAccount(t)
	h1, h2 := acc1.ScriptHash(), p.NewAccount(t).ScriptHash()

	p.Invoke(t, true, "generateTokens", h1, 100)

	c := deployToken(t, e, tokenPrm{parent: &p.Hash, snapshot: height(p) + 10})
	c1 := c.WithSigners(acc1)

	requireBalance(t, c, h1, big.NewInt(100))
	c1.InvokeFail(t, minimeconst.ErrParentSnapshot, "transfer", h1, h2, 1, nil)
}

func TestCloneLimitBelowParentSupply(t *testing.T) {
	e := newExecutor(t)
	p := deployToken(t, e, tokenPrm{})

	h := p.NewAccount(t).ScriptHash()
	p.Invoke(t, true, "generateTokens", h, eth(1000))

	prm := tokenPrm{parent: &p.Hash, snapshot: height(p), limit: eth(999)}
	e.DeployContractCheckFAULT(t, tokenContract(t, e, prm), prm.data(), minimeconst.ErrArithmeticOverflow)

	prm.limit = eth(1000)
	c := deployToken(t, e, prm)
	requireBalance(t, c, h, eth(1000))
	c.InvokeFail(t, minimeconst.ErrArithmeticOverflow, "generateTokens", h, 1)
}

func TestCloneTransferOverflow(t *testing.T) {
	e := newExecutor(t)
	p := deployToken(t, e, tokenPrm{})

	acc1 := p.NewAccount(t)
	h1, h2 := acc1.ScriptHash(), p.NewAccount(t).ScriptHash()

	p.Invoke(t, true, "generateTokens", h2, eth(900))

	// the parent supply at the future snapshot block is unknown on deployment
	snapshot := height(p) + 3
	c := deployToken(t, e, tokenPrm{parent: &p.Hash, snapshot: snapshot, limit: eth(1000)})
	c1 := c.WithSigners(acc1)

	p.Invoke(t, true, "generateTokens", h1, eth(101))
	e.AddNewBlock(t)
	require.Equal(t, snapshot, height(p))

	c1.InvokeFail(t, minimeconst.ErrArithmeticOverflow, "transfer", h1, h2, new(big.Int).Add(eth(100), big.NewInt(1)), nil)
	requireBalance(t, c, h1, eth(101))
	requireBalance(t, c, h2, eth(900))
	require.Empty(t, history(t, c, "balanceHistory", h1))

	c1.Invoke(t, true, "transfer", h1, h2, eth(100), nil)
	requireBalance(t, c, h1, eth(1))
	requireBalance(t, c, h2, eth(1000))

	c.InvokeFail(t, minimeconst.ErrArithmeticOverflow, "generateTokens", h1, 1)
}
