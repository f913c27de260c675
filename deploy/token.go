package deploy

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ErrInvalidSettings is returned for the token settings which are rejected
// before sending any transaction.
var ErrInvalidSettings = errors.New("invalid token settings")

// maxVMInteger is the maximum NeoVM integer, 2^255-1.
var maxVMInteger = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

// TokenSettings groups parameters the MiniMe token is initialized with.
type TokenSettings struct {
	// Controller of the token. Deploying account becomes the controller if
	// unset.
	Controller *util.Uint160

	Name             string
	Symbol           string
	Decimals         uint8
	TransfersEnabled bool

	// Maximum balance and total supply. Contract default (2^128-1) is used
	// if unset.
	BalanceLimit *big.Int
}

func (x TokenSettings) validate() error {
	switch {
	case x.Symbol == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidSettings)
	case x.BalanceLimit != nil && x.BalanceLimit.Sign() <= 0:
		return fmt.Errorf("%w: non-positive balance limit %s", ErrInvalidSettings, x.BalanceLimit)
	case x.BalanceLimit != nil && x.BalanceLimit.Cmp(maxVMInteger) > 0:
		return fmt.Errorf("%w: balance limit %s exceeds maximum VM integer", ErrInvalidSettings, x.BalanceLimit)
	}
	return nil
}

// deployData returns `_deploy` arguments of the MiniMe token. Parent is nil
// for root tokens.
func deployData(x TokenSettings, parent *util.Uint160, snapshot uint32) []any {
	var controller, parentToken, limit any

	if x.Controller != nil {
		controller = *x.Controller
	}
	if parent != nil {
		parentToken = *parent
	}
	if x.BalanceLimit != nil {
		limit = x.BalanceLimit
	}

	return []any{
		controller,
		parentToken,
		int64(snapshot),
		x.Name,
		int64(x.Decimals),
		x.Symbol,
		x.TransfersEnabled,
		limit,
	}
}

// CloneManifest returns manifest of the clone token. Manifest name is
// extended with the parent token address and the snapshot block, so clones
// deployed by the same account get different addresses.
func CloneManifest(m manifest.Manifest, parent util.Uint160, snapshot uint32) manifest.Manifest {
	m.Name = fmt.Sprintf("%s clone of %s at %d", m.Name, parent.StringLE(), snapshot)
	return m
}
