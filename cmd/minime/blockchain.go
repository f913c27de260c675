package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// wrapper over Neo RPC providing blockchain services needed for the commands.
type remoteBlockchain struct {
	rpc     *rpcclient.Client
	invoker *invoker.Invoker
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection. Connection and each request are done within the
// given timeout.
func newRemoteBlockchain(endpoint string, timeout time.Duration) (*remoteBlockchain, error) {
	c, err := rpcclient.New(context.Background(), endpoint, rpcclient.Options{
		DialTimeout:    timeout,
		RequestTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("RPC client init: %w", err)
	}

	return &remoteBlockchain{
		rpc:     c,
		invoker: invoker.New(c, nil),
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// latestBlock returns index of the latest block in the chain.
func (x *remoteBlockchain) latestBlock() (uint32, error) {
	n, err := x.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get number of the latest block: %w", err)
	}
	return n - 1, nil
}

func (x *remoteBlockchain) contractState(h util.Uint160) (state.Contract, error) {
	st, err := x.rpc.GetContractStateByHash(h)
	if err != nil {
		return state.Contract{}, fmt.Errorf("get state of the contract '%s': %w", h.StringLE(), err)
	}
	return *st, nil
}

// iterateContractStorage iterates over all storage items of the Neo smart
// contract at the given block and passes them into f. iterateContractStorage
// breaks on any f's error and returns it. The node must keep state roots
// (StateRoot extension).
func (x *remoteBlockchain) iterateContractStorage(contract util.Uint160, block uint32, f func(key, value []byte) error) error {
	stateRoot, err := x.rpc.GetStateRootByHeight(block)
	if err != nil {
		return fmt.Errorf("get state root at block #%d: %w", block, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items of the contract at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return err
			}
		}

		if !res.Truncated || len(res.Results) == 0 {
			return nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}
