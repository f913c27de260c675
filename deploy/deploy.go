/*
Package deploy provides deployment of the MiniMe token contracts.

Token deploys a root token and Clone deploys a clone token starting from the
balances of its parent token at the snapshot block (MiniMe createCloneToken
procedure). Both functions are idempotent: a contract already deployed at the
expected address is reported and left untouched.
*/
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

var (
	// ErrDeploymentFailed is returned when the deployment transaction is
	// included in the block but its execution is faulted.
	ErrDeploymentFailed = errors.New("deployment transaction faulted")
	// ErrParentNotFound is returned by Clone if the parent token is not
	// deployed.
	ErrParentNotFound = errors.New("parent token is not deployed")
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for token deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions.
	actor.RPCActor

	// GetApplicationLog returns execution results of the transaction. It's
	// used to await deployment transactions.
	GetApplicationLog(hash util.Uint256, trig *trigger.Type) (*result.ApplicationLog, error)

	// GetContractStateByHash returns network state of the smart contract by
	// its address. GetContractStateByHash returns error with 'Unknown
	// contract' substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Prm groups parameters shared by all deployment procedures.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance the token is deployed to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// It pays for the deployment and becomes the token controller unless
	// another one is set.
	LocalAccount *wallet.Account

	Common CommonDeployPrm
}

// TokenPrm groups parameters of the root token deployment.
type TokenPrm struct {
	Prm

	Settings TokenSettings
}

// ClonePrm groups parameters of the clone token deployment.
type ClonePrm struct {
	Prm

	Settings TokenSettings

	// Address of the deployed token to clone.
	Parent util.Uint160

	// Block of the parent token balances the clone starts from. Zero means
	// the latest block of the chain.
	SnapshotBlock uint32
}

// Token deploys the MiniMe token and returns its address. Token waits for the
// deployment transaction to be accepted by the chain or for the context to
// be done.
func Token(ctx context.Context, prm TokenPrm) (util.Uint160, error) {
	err := prm.Settings.validate()
	if err != nil {
		return util.Uint160{}, err
	}

	act, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	return deployContract(ctx, prm.Prm, act, prm.Common.Manifest, deployData(prm.Settings, nil, 0))
}

// Clone deploys the clone of the parent MiniMe token and returns its address.
// Clone token manifest name is extended with the parent address and the
// snapshot block (see CloneManifest). Clone waits for the deployment
// transaction the same way Token does.
func Clone(ctx context.Context, prm ClonePrm) (util.Uint160, error) {
	err := prm.Settings.validate()
	if err != nil {
		return util.Uint160{}, err
	}

	_, err = prm.Blockchain.GetContractStateByHash(prm.Parent)
	if err != nil {
		if isErrContractNotFound(err) {
			return util.Uint160{}, fmt.Errorf("%w: %s", ErrParentNotFound, prm.Parent.StringLE())
		}
		return util.Uint160{}, fmt.Errorf("get parent token state: %w", err)
	}

	act, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	snapshot := prm.SnapshotBlock
	if snapshot == 0 {
		n, err := act.GetBlockCount()
		if err != nil {
			return util.Uint160{}, fmt.Errorf("get number of the latest block: %w", err)
		}
		snapshot = n - 1
	}

	prm.Logger.Info("cloning token",
		zap.Stringer("parent", prm.Parent), zap.Uint32("snapshot block", snapshot))

	m := CloneManifest(prm.Common.Manifest, prm.Parent, snapshot)

	return deployContract(ctx, prm.Prm, act, m, deployData(prm.Settings, &prm.Parent, snapshot))
}

func deployContract(ctx context.Context, prm Prm, act *actor.Actor, m manifest.Manifest, data []any) (util.Uint160, error) {
	addr := state.CreateContractHash(act.Sender(), prm.Common.NEF.Checksum, m.Name)
	l := prm.Logger.With(zap.String("name", m.Name), zap.Stringer("address", addr))

	_, err := prm.Blockchain.GetContractStateByHash(addr)
	if err == nil {
		l.Info("contract is already deployed, skip")
		return addr, nil
	}
	if !isErrContractNotFound(err) {
		return util.Uint160{}, fmt.Errorf("get state of the contract by address: %w", err)
	}

	l.Info("contract is missing on the chain, deploying...")

	txHash, vub, err := management.New(act).Deploy(&prm.Common.NEF, &m, data)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("send deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting for it to be accepted...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := act.WaitAny(ctx, vub, txHash)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("wait for deployment transaction %s: %w", txHash.StringLE(), err)
	}

	if res.VMState != vmstate.Halt {
		return util.Uint160{}, fmt.Errorf("%w: %s", ErrDeploymentFailed, res.FaultException)
	}

	l.Info("contract successfully deployed", zap.Stringer("tx", txHash))

	return addr, nil
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}
