package minime

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// DefaultPageSize is the number of iterator items requested per
// TraverseIterator call.
const DefaultPageSize = 100

// ParentToken returns script hash of the token this one is cloned from. The
// second value is false for a root token.
func (c *ContractReader) ParentToken() (util.Uint160, bool, error) {
	item, err := unwrap.Item(c.invoker.Call(c.hash, "parentToken"))
	if err != nil {
		return util.Uint160{}, false, err
	}
	if _, ok := item.(stackitem.Null); ok {
		return util.Uint160{}, false, nil
	}

	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, false, fmt.Errorf("invalid parent token: %w", err)
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, false, fmt.Errorf("invalid parent token: %w", err)
	}
	return u, true, nil
}

// FullBalanceHistory returns all balance checkpoints of the account ordered
// by block. Iterator session is terminated before return.
func (c *ContractReader) FullBalanceHistory(account util.Uint160) ([]*MinimeCheckpoint, error) {
	sess, iter, err := c.BalanceHistory(account)
	if err != nil {
		return nil, fmt.Errorf("balanceHistory: %w", err)
	}
	return c.traverse(sess, iter)
}

// FullSupplyHistory returns all total supply checkpoints ordered by block.
func (c *ContractReader) FullSupplyHistory() ([]*MinimeCheckpoint, error) {
	sess, iter, err := c.SupplyHistory()
	if err != nil {
		return nil, fmt.Errorf("supplyHistory: %w", err)
	}
	return c.traverse(sess, iter)
}

func (c *ContractReader) traverse(sess uuid.UUID, iter result.Iterator) ([]*MinimeCheckpoint, error) {
	if iter.ID == nil {
		// server has sessions disabled and expanded the iterator itself
		if iter.Truncated {
			return nil, errors.New("iterator values are truncated by the server")
		}
		return Checkpoints(iter.Values)
	}

	defer func() { _ = c.invoker.TerminateSession(sess) }()

	var items []stackitem.Item
	for {
		page, err := c.invoker.TraverseIterator(sess, &iter, DefaultPageSize)
		if err != nil {
			return nil, fmt.Errorf("traverse iterator: %w", err)
		}
		items = append(items, page...)
		if len(page) < DefaultPageSize {
			break
		}
	}

	return Checkpoints(items)
}

// Checkpoints converts balanceHistory or supplyHistory iterator values into
// checkpoints ordered by block.
func Checkpoints(items []stackitem.Item) ([]*MinimeCheckpoint, error) {
	res := make([]*MinimeCheckpoint, 0, len(items))
	for i := range items {
		cp, err := itemToMinimeCheckpoint(items[i], nil)
		if err != nil {
			return nil, fmt.Errorf("checkpoint #%d: %w", i, err)
		}
		res = append(res, cp)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].FromBlock.Cmp(res[j].FromBlock) < 0
	})

	return res, nil
}
