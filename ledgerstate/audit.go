package ledgerstate

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ViolationKind is a kind of broken ledger invariant.
type ViolationKind string

// Kinds of violations reported by Audit.
const (
	// ViolationLimit means the balance limit is not a positive 256-bit
	// unsigned integer or some value exceeds it.
	ViolationLimit ViolationKind = "limit"
	// ViolationNegative means some balance or supply value is negative.
	ViolationNegative ViolationKind = "negative"
	// ViolationOrder means checkpoints are not strictly ordered by block or
	// start before the token creation.
	ViolationOrder ViolationKind = "order"
	// ViolationConservation means sum of balances differs from the total
	// supply at some block.
	ViolationConservation ViolationKind = "conservation"
	// ViolationOverflow means sum of balances does not fit 256 bits.
	ViolationOverflow ViolationKind = "overflow"
)

// Violation describes a single broken invariant.
type Violation struct {
	Kind ViolationKind
	// Account is nil for violations of the total supply history.
	Account *util.Uint160
	Block   uint32
	Details string
}

// String implements fmt.Stringer.
func (v Violation) String() string {
	subject := "supply"
	if v.Account != nil {
		subject = "account " + v.Account.StringLE()
	}
	return fmt.Sprintf("%s: %s at block %d: %s", v.Kind, subject, v.Block, v.Details)
}

// Report is a result of the ledger audit.
type Report struct {
	// Accounts is the number of accounts which ever had a balance.
	Accounts int
	// Supply is the latest total supply.
	Supply *big.Int
	// SumOfBalances is the sum of the latest balances.
	SumOfBalances *big.Int
	// Blocks is the number of blocks conservation was checked at.
	Blocks int

	Violations []Violation
}

// OK checks whether no violations were found.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

type auditor struct {
	state *State
	limit *uint256.Int
	rep   *Report
}

// Audit checks invariants of the decoded token ledger:
//   - every value is non-negative and does not exceed the balance limit,
//     including values a clone inherits from its parent;
//   - checkpoints of every history are strictly ordered by block;
//   - sum of all balances equals the total supply at every block any value
//     was changed at.
//
// Sums are calculated in 256-bit unsigned arithmetic with explicit overflow
// detection. Clone tokens are audited against the linked parent state, Audit
// fails if it's missing.
func Audit(s *State) (*Report, error) {
	a := &auditor{
		state: s,
		rep:   new(Report),
	}

	var overflow bool
	if s.BalanceLimit == nil || s.BalanceLimit.Sign() <= 0 {
		overflow = true
	} else {
		a.limit, overflow = uint256.FromBig(s.BalanceLimit)
	}
	if overflow {
		a.violate(ViolationLimit, nil, 0, fmt.Sprintf("invalid balance limit %v", s.BalanceLimit))
		a.limit = nil
	}

	if s.ParentToken != nil && s.Parent == nil {
		return nil, ErrMissingParent
	}

	a.checkHistory(nil, s.SupplyHistory)

	accounts := s.Accounts()
	a.rep.Accounts = len(accounts)

	if s.Parent != nil {
		err := a.checkInherited(accounts)
		if err != nil {
			return nil, err
		}
	}

	blocks := make(map[uint32]struct{})
	for _, cp := range s.SupplyHistory {
		blocks[cp.FromBlock] = struct{}{}
	}

	for _, acc := range accounts {
		history, ok := s.BalanceHistory[acc]
		if !ok {
			continue
		}
		acc := acc
		a.checkHistory(&acc, history)
		for _, cp := range history {
			blocks[cp.FromBlock] = struct{}{}
		}
	}

	ordered := make([]uint32, 0, len(blocks))
	for b := range blocks {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, b := range ordered {
		sum, supply, err := a.sumAt(accounts, b)
		if err != nil {
			return nil, err
		}
		switch {
		case sum == nil:
			a.violate(ViolationOverflow, nil, b, "sum of balances exceeds 256 bits")
		case sum.Cmp(supply) != 0:
			a.violate(ViolationConservation, nil, b,
				fmt.Sprintf("sum of balances %s, total supply %s", sum, supply))
		}
	}
	a.rep.Blocks = len(ordered)

	var err error

	a.rep.SumOfBalances, a.rep.Supply, err = a.sumAt(accounts, ^uint32(0))
	if err != nil {
		return nil, err
	}

	return a.rep, nil
}

func (a *auditor) violate(kind ViolationKind, acc *util.Uint160, block uint32, details string) {
	a.rep.Violations = append(a.rep.Violations, Violation{
		Kind:    kind,
		Account: acc,
		Block:   block,
		Details: details,
	})
}

func (a *auditor) checkHistory(acc *util.Uint160, history []Checkpoint) {
	for i, cp := range history {
		if cp.FromBlock < a.state.CreationBlock {
			a.violate(ViolationOrder, acc, cp.FromBlock,
				fmt.Sprintf("checkpoint #%d precedes token creation block %d", i, a.state.CreationBlock))
		}
		if i > 0 && cp.FromBlock <= history[i-1].FromBlock {
			a.violate(ViolationOrder, acc, cp.FromBlock,
				fmt.Sprintf("checkpoint #%d does not follow block %d", i, history[i-1].FromBlock))
		}
		a.checkValue(acc, cp.FromBlock, cp.Value)
	}
}

// checkInherited checks values the clone takes from its parent against the
// clone balance limit. They are in effect at the creation block unless the
// clone history overrides them.
func (a *auditor) checkInherited(accounts []util.Uint160) error {
	block := a.state.CreationBlock

	if inherits(a.state.SupplyHistory, block) {
		v, err := a.state.SupplyAt(block)
		if err != nil {
			return fmt.Errorf("inherited supply: %w", err)
		}
		a.checkValue(nil, block, v)
	}

	for _, acc := range accounts {
		if !inherits(a.state.BalanceHistory[acc], block) {
			continue
		}

		v, err := a.state.BalanceAt(acc, block)
		if err != nil {
			return fmt.Errorf("inherited balance of %s: %w", acc.StringLE(), err)
		}

		acc := acc
		a.checkValue(&acc, block, v)
	}

	return nil
}

func inherits(history []Checkpoint, block uint32) bool {
	return len(history) == 0 || history[0].FromBlock > block
}

// checkValue converts v to 256-bit integer and reports violations of the
// balance limit.
func (a *auditor) checkValue(acc *util.Uint160, block uint32, v *big.Int) *uint256.Int {
	if v.Sign() < 0 {
		a.violate(ViolationNegative, acc, block, fmt.Sprintf("value %s", v))
		return nil
	}

	u, overflow := uint256.FromBig(v)
	if overflow {
		a.violate(ViolationLimit, acc, block, fmt.Sprintf("value %s does not fit 256 bits", v))
		return nil
	}

	if a.limit != nil && u.Gt(a.limit) {
		a.violate(ViolationLimit, acc, block, fmt.Sprintf("value %s exceeds limit %s", v, a.state.BalanceLimit))
	}

	return u
}

// sumAt returns sum of account balances and the total supply at the block.
// The sum is nil if it does not fit 256 bits.
func (a *auditor) sumAt(accounts []util.Uint160, block uint32) (*big.Int, *big.Int, error) {
	sum := new(uint256.Int)

	supply, err := a.state.SupplyAt(block)
	if err != nil {
		return nil, nil, fmt.Errorf("supply at %d: %w", block, err)
	}

	for _, acc := range accounts {
		b, err := a.state.BalanceAt(acc, block)
		if err != nil {
			return nil, nil, fmt.Errorf("balance of %s at %d: %w", acc.StringLE(), block, err)
		}

		u, overflow := uint256.FromBig(b)
		if b.Sign() < 0 || overflow {
			// reported by history checks
			continue
		}

		sum.Add(sum, u)
		if sum.Lt(u) {
			return nil, supply, nil
		}
	}

	return sum.ToBig(), supply, nil
}
