package ledgerstate

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/nspcc-dev/minime-contract/contracts/minime/minimeconst"
	"github.com/nspcc-dev/minime-contract/dump"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

var (
	// ErrInvalidItem is returned by Decode for the storage items which can
	// not be decoded.
	ErrInvalidItem = errors.New("invalid storage item")
	// ErrMissingParent is returned for reads of the clone token which need
	// the parent token state that is not linked.
	ErrMissingParent = errors.New("parent token state is missing")
)

// Checkpoint is a value of the balance or total supply in effect starting
// from FromBlock.
type Checkpoint struct {
	FromBlock uint32
	Value     *big.Int
}

// Allowance is an amount spender is allowed to withdraw from owner.
type Allowance struct {
	Owner   util.Uint160
	Spender util.Uint160
	Amount  *big.Int
}

// State is a decoded storage of the MiniMe token contract.
type State struct {
	// Hash of the token contract. Decode leaves it empty, it's needed to
	// Link clone tokens with their parents only.
	Hash util.Uint160

	Controller          util.Uint160
	ParentToken         *util.Uint160
	ParentSnapShotBlock uint32
	CreationBlock       uint32
	Name                string
	Symbol              string
	Decimals            int64
	TransfersEnabled    bool
	BalanceLimit        *big.Int

	// Histories are ordered by block.
	BalanceHistory map[util.Uint160][]Checkpoint
	SupplyHistory  []Checkpoint

	Allowances []Allowance

	// Parent is a decoded state of the parent token. It's set by Link.
	Parent *State
}

// Decode decodes storage items of the MiniMe token contract.
func Decode(items []dump.KeyValue) (*State, error) {
	var (
		s = &State{
			BalanceLimit:   new(big.Int),
			BalanceHistory: make(map[util.Uint160][]Checkpoint),
		}
		counts  = make(map[string]int)
		indexed = make(map[string]map[int]Checkpoint)
	)

	for i := range items {
		err := s.decodeItem(items[i].Key, items[i].Value, counts, indexed)
		if err != nil {
			return nil, fmt.Errorf("%w: key %x: %w", ErrInvalidItem, items[i].Key, err)
		}
	}

	for key, cps := range indexed {
		if counts[key] != len(cps) {
			return nil, fmt.Errorf("%w: history %x has %d checkpoints, %d expected",
				ErrInvalidItem, key, len(cps), counts[key])
		}

		history := make([]Checkpoint, len(cps))
		for i := range history {
			cp, ok := cps[i]
			if !ok {
				return nil, fmt.Errorf("%w: history %x misses checkpoint #%d", ErrInvalidItem, key, i)
			}
			history[i] = cp
		}

		if key[0] == minimeconst.SupplyHistoryKey {
			s.SupplyHistory = history
			continue
		}

		acc, err := util.Uint160DecodeBytesBE([]byte(key[1:]))
		if err != nil {
			return nil, fmt.Errorf("%w: history %x: %w", ErrInvalidItem, key, err)
		}
		s.BalanceHistory[acc] = history
	}

	for key, n := range counts {
		if _, ok := indexed[key]; !ok && n != 0 {
			return nil, fmt.Errorf("%w: history %x has no checkpoints, %d expected", ErrInvalidItem, key, n)
		}
	}

	sort.Slice(s.Allowances, func(i, j int) bool {
		if c := bytes.Compare(s.Allowances[i].Owner[:], s.Allowances[j].Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(s.Allowances[i].Spender[:], s.Allowances[j].Spender[:]) < 0
	})

	return s, nil
}

func (s *State) decodeItem(key, value []byte, counts map[string]int, indexed map[string]map[int]Checkpoint) error {
	if len(key) == 0 {
		return errors.New("empty key")
	}

	var err error

	switch string(key) {
	case minimeconst.ControllerKey:
		s.Controller, err = util.Uint160DecodeBytesBE(value)
		return err
	case minimeconst.ParentTokenKey:
		parent, err := util.Uint160DecodeBytesBE(value)
		if err != nil {
			return err
		}
		s.ParentToken = &parent
		return nil
	case minimeconst.ParentSnapShotBlockKey:
		s.ParentSnapShotBlock, err = decodeBlock(value)
		return err
	case minimeconst.CreationBlockKey:
		s.CreationBlock, err = decodeBlock(value)
		return err
	case minimeconst.NameKey:
		s.Name = string(value)
		return nil
	case minimeconst.SymbolKey:
		s.Symbol = string(value)
		return nil
	case minimeconst.DecimalsKey:
		d := bigint.FromBytes(value)
		if !d.IsInt64() {
			return errors.New("decimals out of range")
		}
		s.Decimals = d.Int64()
		return nil
	case minimeconst.TransfersEnabledKey:
		s.TransfersEnabled = bigint.FromBytes(value).Sign() != 0
		return nil
	case minimeconst.BalanceLimitKey:
		s.BalanceLimit = bigint.FromBytes(value)
		return nil
	}

	switch key[0] {
	case minimeconst.CheckpointCountPrefix:
		historyKey := string(key[1:])
		if !isHistoryKey(historyKey) {
			return errors.New("invalid history key")
		}
		n := bigint.FromBytes(value)
		if n.Sign() < 0 || !n.IsInt64() || n.Int64() > math.MaxInt32 {
			return errors.New("invalid number of checkpoints")
		}
		counts[historyKey] = int(n.Int64())
		return nil
	case minimeconst.CheckpointPrefix:
		historyKey, index, err := splitCheckpointKey(key[1:])
		if err != nil {
			return err
		}
		cp, err := decodeCheckpoint(value)
		if err != nil {
			return err
		}
		if indexed[historyKey] == nil {
			indexed[historyKey] = make(map[int]Checkpoint)
		}
		indexed[historyKey][index] = cp
		return nil
	case minimeconst.AllowancePrefix:
		if len(key) != 1+2*util.Uint160Size {
			return errors.New("invalid allowance key")
		}
		var a Allowance
		a.Owner, _ = util.Uint160DecodeBytesBE(key[1 : 1+util.Uint160Size])
		a.Spender, _ = util.Uint160DecodeBytesBE(key[1+util.Uint160Size:])
		a.Amount = bigint.FromBytes(value)
		s.Allowances = append(s.Allowances, a)
		return nil
	}

	return errors.New("unknown key")
}

func isHistoryKey(k string) bool {
	return k == string(minimeconst.SupplyHistoryKey) ||
		len(k) == 1+util.Uint160Size && k[0] == minimeconst.AccountHistoryPrefix
}

// splitCheckpointKey splits checkpoint key without the prefix into the
// history key and the checkpoint index.
func splitCheckpointKey(k []byte) (string, int, error) {
	var n int

	switch {
	case len(k) > 0 && k[0] == minimeconst.SupplyHistoryKey:
		n = 1
	case len(k) > util.Uint160Size && k[0] == minimeconst.AccountHistoryPrefix:
		n = 1 + util.Uint160Size
	default:
		return "", 0, errors.New("invalid checkpoint key")
	}

	index := bigint.FromBytes(k[n:])
	if index.Sign() < 0 || !index.IsInt64() || index.Int64() > math.MaxInt32 {
		return "", 0, errors.New("invalid checkpoint index")
	}

	return string(k[:n]), int(index.Int64()), nil
}

func decodeCheckpoint(data []byte) (Checkpoint, error) {
	var cp Checkpoint

	item, err := stackitem.Deserialize(data)
	if err != nil {
		return cp, fmt.Errorf("deserialize checkpoint: %w", err)
	}

	arr, ok := item.Value().([]stackitem.Item)
	if !ok || len(arr) != 2 {
		return cp, errors.New("checkpoint is not a structure of 2 fields")
	}

	from, err := arr[0].TryInteger()
	if err != nil {
		return cp, fmt.Errorf("checkpoint block: %w", err)
	}
	if from.Sign() < 0 || !from.IsUint64() || from.Uint64() > math.MaxUint32 {
		return cp, fmt.Errorf("checkpoint block %s is out of range", from)
	}

	cp.Value, err = arr[1].TryInteger()
	if err != nil {
		return cp, fmt.Errorf("checkpoint value: %w", err)
	}

	cp.FromBlock = uint32(from.Uint64())

	return cp, nil
}

func decodeBlock(data []byte) (uint32, error) {
	b := bigint.FromBytes(data)
	if b.Sign() < 0 || !b.IsUint64() || b.Uint64() > math.MaxUint32 {
		return 0, fmt.Errorf("block %s is out of range", b)
	}
	return uint32(b.Uint64()), nil
}

// Link sets Parent of every clone token state found in states.
func Link(states map[util.Uint160]*State) error {
	for h, s := range states {
		if s.ParentToken == nil {
			continue
		}
		parent, ok := states[*s.ParentToken]
		if !ok {
			return fmt.Errorf("%w: token %s, parent %s", ErrMissingParent, h.StringLE(), s.ParentToken.StringLE())
		}
		s.Parent = parent
	}
	return nil
}

// BalanceAt returns balance of the account at the given block.
func (s *State) BalanceAt(account util.Uint160, block uint32) (*big.Int, error) {
	if v, ok := valueAt(s.BalanceHistory[account], block); ok {
		return v, nil
	}

	if s.ParentToken == nil {
		return new(big.Int), nil
	}
	if s.Parent == nil {
		return nil, ErrMissingParent
	}

	return s.Parent.BalanceAt(account, min(block, s.ParentSnapShotBlock))
}

// SupplyAt returns total supply of the token at the given block.
func (s *State) SupplyAt(block uint32) (*big.Int, error) {
	if v, ok := valueAt(s.SupplyHistory, block); ok {
		return v, nil
	}

	if s.ParentToken == nil {
		return new(big.Int), nil
	}
	if s.Parent == nil {
		return nil, ErrMissingParent
	}

	return s.Parent.SupplyAt(min(block, s.ParentSnapShotBlock))
}

// Balance returns the latest balance of the account.
func (s *State) Balance(account util.Uint160) (*big.Int, error) {
	return s.BalanceAt(account, math.MaxUint32)
}

// Supply returns the latest total supply of the token.
func (s *State) Supply() (*big.Int, error) {
	return s.SupplyAt(math.MaxUint32)
}

// Accounts returns all accounts which ever had a balance of the token
// including the ones inherited from the parent token. Accounts are sorted by
// their big-endian byte representation.
func (s *State) Accounts() []util.Uint160 {
	set := make(map[util.Uint160]struct{})
	s.collectAccounts(set)

	res := make([]util.Uint160, 0, len(set))
	for acc := range set {
		res = append(res, acc)
	}

	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i][:], res[j][:]) < 0
	})

	return res
}

func (s *State) collectAccounts(set map[util.Uint160]struct{}) {
	for acc := range s.BalanceHistory {
		set[acc] = struct{}{}
	}
	if s.Parent != nil {
		s.Parent.collectAccounts(set)
	}
}

// Holders returns accounts with non-zero latest balance.
func (s *State) Holders() ([]util.Uint160, error) {
	var res []util.Uint160

	for _, acc := range s.Accounts() {
		b, err := s.Balance(acc)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", acc.StringLE(), err)
		}
		if b.Sign() != 0 {
			res = append(res, acc)
		}
	}

	return res, nil
}

// valueAt returns the value of the history in effect at the given block. The
// second result is false if the history is empty or starts after the block.
func valueAt(history []Checkpoint, block uint32) (*big.Int, bool) {
	// index of the first checkpoint after the block
	i := sort.Search(len(history), func(i int) bool {
		return history[i].FromBlock > block
	})
	if i == 0 {
		return nil, false
	}
	return new(big.Int).Set(history[i-1].Value), true
}

func min(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
