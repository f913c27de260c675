package main

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"

	"github.com/nspcc-dev/minime-contract/contracts"
	"github.com/nspcc-dev/minime-contract/deploy"
	"github.com/nspcc-dev/minime-contract/dump"
	"github.com/nspcc-dev/minime-contract/ledgerstate"
	"github.com/nspcc-dev/minime-contract/rpc/minime"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func (e *env) deploy(c *cli.Context) error {
	prm, b, err := e.deployPrm()
	if err != nil {
		return err
	}
	defer b.close()

	settings, err := e.cfg.Token.settings()
	if err != nil {
		return err
	}

	ctx, cancel := e.context()
	defer cancel()

	h, err := deploy.Token(ctx, deploy.TokenPrm{Prm: prm, Settings: settings})
	if err != nil {
		return fmt.Errorf("deploy token: %w", err)
	}

	fmt.Fprintln(c.App.Writer, address.Uint160ToString(h))

	return nil
}

func (e *env) clone(c *cli.Context) error {
	parent, err := requiredAccount(c, "parent")
	if err != nil {
		return err
	}

	prm, b, err := e.deployPrm()
	if err != nil {
		return err
	}
	defer b.close()

	settings, err := e.cfg.Token.settings()
	if err != nil {
		return err
	}
	if c.IsSet("name") {
		settings.Name = c.String("name")
	}
	if c.IsSet("symbol") {
		settings.Symbol = c.String("symbol")
	}

	ctx, cancel := e.context()
	defer cancel()

	h, err := deploy.Clone(ctx, deploy.ClonePrm{
		Prm:           prm,
		Settings:      settings,
		Parent:        parent,
		SnapshotBlock: uint32(c.Uint64("snapshot")),
	})
	if err != nil {
		return fmt.Errorf("deploy clone token: %w", err)
	}

	fmt.Fprintln(c.App.Writer, address.Uint160ToString(h))

	return nil
}

// deployPrm reads compiled contract and unlocks the account configured to
// sign deployment transactions.
func (e *env) deployPrm() (deploy.Prm, *remoteBlockchain, error) {
	var prm deploy.Prm

	err := e.cfg.validateDeploy()
	if err != nil {
		return prm, nil, err
	}

	ctr, err := contracts.ReadDir(e.cfg.Contract)
	if err != nil {
		return prm, nil, fmt.Errorf("read compiled contract: %w", err)
	}

	acc, err := openAccount(e.cfg.Wallet)
	if err != nil {
		return prm, nil, err
	}

	b, err := newRemoteBlockchain(e.cfg.RPC, e.cfg.timeout())
	if err != nil {
		return prm, nil, err
	}

	return deploy.Prm{
		Logger:       e.log,
		Blockchain:   b.rpc,
		LocalAccount: acc,
		Common: deploy.CommonDeployPrm{
			NEF:      ctr.NEF,
			Manifest: ctr.Manifest,
		},
	}, b, nil
}

func openAccount(cfg WalletConfig) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	h := w.GetChangeAddress()
	if cfg.Address != "" {
		h, err = parseAccount(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet address: %w", err)
		}
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(h))
	}

	err = acc.Decrypt(cfg.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("unlock account %s: %w", address.Uint160ToString(h), err)
	}

	return acc, nil
}

func (e *env) reader(c *cli.Context) (*minime.ContractReader, *remoteBlockchain, error) {
	token, err := requiredAccount(c, "token")
	if err != nil {
		return nil, nil, err
	}

	err = e.cfg.validateRPC()
	if err != nil {
		return nil, nil, err
	}

	b, err := newRemoteBlockchain(e.cfg.RPC, e.cfg.timeout())
	if err != nil {
		return nil, nil, err
	}

	return minime.NewReader(b.invoker, token), b, nil
}

func (e *env) balance(c *cli.Context) error {
	acc, err := requiredAccount(c, "account")
	if err != nil {
		return err
	}

	r, b, err := e.reader(c)
	if err != nil {
		return err
	}
	defer b.close()

	var v *big.Int
	if at := c.Int64("at"); at >= 0 {
		v, err = r.BalanceOfAt(acc, big.NewInt(at))
	} else {
		v, err = r.BalanceOf(acc)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}

	return printAmount(c.App.Writer, r, v)
}

func (e *env) supply(c *cli.Context) error {
	r, b, err := e.reader(c)
	if err != nil {
		return err
	}
	defer b.close()

	var v *big.Int
	if at := c.Int64("at"); at >= 0 {
		v, err = r.TotalSupplyAt(big.NewInt(at))
	} else {
		v, err = r.TotalSupply()
	}
	if err != nil {
		return fmt.Errorf("read total supply: %w", err)
	}

	return printAmount(c.App.Writer, r, v)
}

func (e *env) history(c *cli.Context) error {
	r, b, err := e.reader(c)
	if err != nil {
		return err
	}
	defer b.close()

	var cps []*minime.MinimeCheckpoint
	if c.IsSet("account") {
		var acc util.Uint160
		acc, err = requiredAccount(c, "account")
		if err != nil {
			return err
		}
		cps, err = r.FullBalanceHistory(acc)
	} else {
		cps, err = r.FullSupplyHistory()
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	for _, cp := range cps {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", cp.FromBlock, cp.Value)
	}

	return nil
}

func printAmount(w io.Writer, r *minime.ContractReader, v *big.Int) error {
	decimals, err := r.Decimals()
	if err != nil {
		return fmt.Errorf("read decimals: %w", err)
	}
	symbol, err := r.Symbol()
	if err != nil {
		return fmt.Errorf("read symbol: %w", err)
	}

	fmt.Fprintf(w, "%s %s (%s)\n", fixedn.ToString(v, decimals), symbol, v)

	return nil
}

func (e *env) dump(c *cli.Context) error {
	label := c.String("label")
	if label == "" {
		return errors.New("missing blockchain label")
	}

	tokens := c.StringSlice("token")
	if len(tokens) == 0 {
		return errors.New("missing token address")
	}

	err := e.cfg.validateRPC()
	if err != nil {
		return err
	}

	b, err := newRemoteBlockchain(e.cfg.RPC, e.cfg.timeout())
	if err != nil {
		return fmt.Errorf("init remote blockchain: %w", err)
	}
	defer b.close()

	block := uint32(c.Uint64("block"))
	if !c.IsSet("block") {
		block, err = b.latestBlock()
		if err != nil {
			return err
		}
	}

	dir := c.String("dir")

	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}

	d, err := dump.NewCreator(dir, dump.ID{Label: label, Block: block})
	if err != nil {
		return fmt.Errorf("init local dumper: %w", err)
	}
	defer d.Close()

	dumped := make(map[util.Uint160]struct{})

	for i := range tokens {
		h, err := parseAccount(tokens[i])
		if err != nil {
			return fmt.Errorf("invalid token address: %w", err)
		}

		err = e.dumpToken(b, d, h, block, dumped)
		if err != nil {
			return err
		}
	}

	err = d.Flush()
	if err != nil {
		return fmt.Errorf("flush dump: %w", err)
	}

	e.log.Info("tokens are successfully dumped", zap.String("dir", dir), zap.Int("contracts", len(dumped)))

	return nil
}

// dumpToken dumps the token and all its ancestors.
func (e *env) dumpToken(b *remoteBlockchain, d *dump.Creator, h util.Uint160, block uint32, dumped map[util.Uint160]struct{}) error {
	for {
		if _, ok := dumped[h]; ok {
			return nil
		}

		e.log.Info("processing token...", zap.Stringer("address", h))

		st, err := b.contractState(h)
		if err != nil {
			return err
		}

		w, err := d.AddContract(h.StringLE(), st)
		if err != nil {
			return err
		}

		err = b.iterateContractStorage(h, block, w.Write)
		if err != nil {
			return fmt.Errorf("iterate storage of token %s: %w", h.StringLE(), err)
		}
		dumped[h] = struct{}{}

		parent, ok, err := minime.NewReader(b.invoker, h).ParentToken()
		if err != nil {
			return fmt.Errorf("read parent of token %s: %w", h.StringLE(), err)
		}
		if !ok {
			return nil
		}
		h = parent
	}
}

var errLedgerViolated = errors.New("ledger audit failed")

func (e *env) audit(c *cli.Context) error {
	var (
		failed bool
		label  = c.String("label")
		w      = c.App.Writer
	)

	err := dump.IterateDumps(c.String("dir"), func(id dump.ID, r *dump.Reader) {
		if label != "" && id.Label != label {
			return
		}

		reports, err := auditDump(r)
		if err != nil {
			e.log.Error("failed to audit dump", zap.Stringer("dump", id), zap.Error(err))
			failed = true
			return
		}

		for _, rep := range reports {
			fmt.Fprintf(w, "%s %s: accounts %d, supply %s, sum of balances %s, checked blocks %d\n",
				id, rep.name, rep.Accounts, rep.Supply, rep.SumOfBalances, rep.Blocks)
			for _, v := range rep.Violations {
				fmt.Fprintf(w, "\t%s\n", v)
			}
			failed = failed || !rep.OK()
		}
	})
	if err != nil {
		return err
	}

	if failed {
		return errLedgerViolated
	}

	return nil
}

type namedReport struct {
	name string
	*ledgerstate.Report
}

// auditDump decodes all contracts of the dump as MiniMe tokens, links clones
// with their parents and audits every token.
func auditDump(r *dump.Reader) ([]namedReport, error) {
	var (
		states = make(map[util.Uint160]*ledgerstate.State)
		names  = make(map[util.Uint160]string)
		err    error
	)

	r.IterateContractStates(func(name string, st state.Contract) {
		if err != nil {
			return
		}

		_, items, e := r.Contract(name)
		if e != nil {
			err = e
			return
		}

		s, e := ledgerstate.Decode(items)
		if e != nil {
			err = fmt.Errorf("decode token '%s': %w", name, e)
			return
		}

		s.Hash = st.Hash
		states[st.Hash] = s
		names[st.Hash] = name
	})
	if err != nil {
		return nil, err
	}

	err = ledgerstate.Link(states)
	if err != nil {
		return nil, err
	}

	res := make([]namedReport, 0, len(states))
	for h, s := range states {
		rep, err := ledgerstate.Audit(s)
		if err != nil {
			return nil, fmt.Errorf("audit token '%s': %w", names[h], err)
		}
		res = append(res, namedReport{name: names[h], Report: rep})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].name < res[j].name })

	return res, nil
}

func requiredAccount(c *cli.Context, flag string) (util.Uint160, error) {
	s := c.String(flag)
	if s == "" {
		return util.Uint160{}, fmt.Errorf("missing --%s", flag)
	}

	h, err := parseAccount(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid --%s: %w", flag, err)
	}

	return h, nil
}
