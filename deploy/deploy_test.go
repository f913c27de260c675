package deploy

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/minime-contract/rpc/minime"
	"github.com/nspcc-dev/neo-go/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/consensus"
	"github.com/nspcc-dev/neo-go/pkg/core"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/network"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/services/rpcsrv"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTokenSettings(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		for _, tc := range []struct {
			name     string
			settings TokenSettings
			valid    bool
		}{
			{name: "minimal", settings: TokenSettings{Symbol: "MMT"}, valid: true},
			{name: "empty symbol", settings: TokenSettings{Name: "MiniMe"}},
			{name: "zero limit", settings: TokenSettings{Symbol: "MMT", BalanceLimit: big.NewInt(0)}},
			{name: "negative limit", settings: TokenSettings{Symbol: "MMT", BalanceLimit: big.NewInt(-1)}},
			{name: "max limit", settings: TokenSettings{Symbol: "MMT", BalanceLimit: maxVMInteger}, valid: true},
			{name: "limit overflow", settings: TokenSettings{
				Symbol:       "MMT",
				BalanceLimit: new(big.Int).Add(maxVMInteger, big.NewInt(1)),
			}},
		} {
			err := tc.settings.validate()
			if tc.valid {
				require.NoError(t, err, tc.name)
			} else {
				require.ErrorIs(t, err, ErrInvalidSettings, tc.name)
			}
		}
	})

	t.Run("deploy data", func(t *testing.T) {
		var (
			ctrl   = util.Uint160{1}
			parent = util.Uint160{2}
			limit  = big.NewInt(1_000_000)
		)

		require.Equal(t, []any{nil, nil, int64(0), "MiniMe", int64(18), "MMT", true, nil},
			deployData(TokenSettings{
				Name:             "MiniMe",
				Symbol:           "MMT",
				Decimals:         18,
				TransfersEnabled: true,
			}, nil, 0))

		require.Equal(t, []any{ctrl, parent, int64(42), "Clone", int64(0), "MMC", false, limit},
			deployData(TokenSettings{
				Controller:   &ctrl,
				Name:         "Clone",
				Symbol:       "MMC",
				BalanceLimit: limit,
			}, &parent, 42))
	})

	t.Run("clone manifest", func(t *testing.T) {
		m := *manifest.NewManifest("MiniMe")
		parent := util.Uint160{3}

		c1 := CloneManifest(m, parent, 10)
		c2 := CloneManifest(m, parent, 11)

		require.Equal(t, "MiniMe", m.Name)
		require.NotEqual(t, m.Name, c1.Name)
		require.NotEqual(t, c1.Name, c2.Name)
		require.Contains(t, c1.Name, parent.StringLE())
		require.Equal(t, m.ABI, c1.ABI)
	})
}

func TestIsErrContractNotFound(t *testing.T) {
	require.True(t, isErrContractNotFound(fmt.Errorf("rpc: %w", fmt.Errorf("Unknown contract"))))
	require.False(t, isErrContractNotFound(fmt.Errorf("connection refused")))
}

// newTestChain starts single-node consensus network with RPC server and
// returns RPC client connected to it along with the validator account owning
// all network GAS.
func newTestChain(t *testing.T) (*rpcclient.Internal, *wallet.Account) {
	validatorAcc, err := wallet.NewAccount()
	require.NoError(t, err)

	var validatorMulti = new(wallet.Account)
	*validatorMulti = *validatorAcc
	err = validatorMulti.ConvertMultisig(1, []*keys.PublicKey{validatorAcc.PublicKey()})
	require.NoError(t, err)

	walletPath := filepath.Join(t.TempDir(), "wallet.json")

	wlt, err := wallet.NewWallet(walletPath)
	require.NoError(t, err)

	err = validatorAcc.Encrypt("", keys.NEP2ScryptParams())
	require.NoError(t, err)
	wlt.AddAccount(validatorAcc)
	require.NoError(t, wlt.Save())

	var (
		cfg = config.Config{
			ApplicationConfiguration: config.ApplicationConfiguration{
				RPC: config.RPC{
					BasicService: config.BasicService{
						Enabled: true,
					},
					MaxGasInvoke: fixedn.Fixed8FromInt64(50),
				},
				Consensus: config.Consensus{
					Enabled: true,
					UnlockWallet: config.Wallet{
						Path:     walletPath,
						Password: "",
					},
				},
			},
			ProtocolConfiguration: config.ProtocolConfiguration{
				Magic:                       netmode.UnitTestNet,
				MaxTraceableBlocks:          1000,
				MaxValidUntilBlockIncrement: 1000 / 2,
				TimePerBlock:                50 * time.Millisecond,
				StandbyCommittee:            []string{hex.EncodeToString(validatorAcc.PublicKey().Bytes())},
				ValidatorsCount:             1,
				VerifyTransactions:          true,
			},
		}
		logger = zaptest.NewLogger(t)
		store  = storage.NewMemoryStore()
	)

	bc, err := core.NewBlockchain(store, config.Blockchain{ProtocolConfiguration: cfg.ProtocolConfiguration}, logger)
	require.NoError(t, err)
	go bc.Run()
	t.Cleanup(bc.Close)

	serverConfig, err := network.NewServerConfig(config.Config{ProtocolConfiguration: cfg.ProtocolConfiguration})
	require.NoError(t, err)
	serverConfig.UserAgent = fmt.Sprintf(config.UserAgentFormat, "minime")
	netSrv, err := network.NewServer(serverConfig, bc, bc.GetStateSyncModule(), logger)
	require.NoError(t, err)
	cons, err := consensus.NewService(consensus.Config{
		Logger:                logger,
		Broadcast:             netSrv.BroadcastExtensible,
		Chain:                 bc,
		BlockQueue:            netSrv.GetBlockQueue(),
		ProtocolConfiguration: cfg.ProtocolConfiguration,
		RequestTx:             netSrv.RequestTx,
		StopTxFlow:            netSrv.StopTxFlow,
		TimePerBlock:          cfg.ProtocolConfiguration.TimePerBlock,
		Wallet:                cfg.ApplicationConfiguration.Consensus.UnlockWallet,
	})
	require.NoError(t, err)
	netSrv.AddConsensusService(cons, cons.OnPayload, cons.OnTransaction)
	go netSrv.Start()
	t.Cleanup(netSrv.Shutdown)

	errCh := make(chan error, 2)
	rpcServer := rpcsrv.New(bc, cfg.ApplicationConfiguration.RPC, netSrv, nil, logger, errCh)
	rpcServer.Start()
	t.Cleanup(rpcServer.Shutdown)

	rpcClient, err := rpcclient.NewInternal(context.TODO(), rpcServer.RegisterLocal)
	require.NoError(t, err)
	require.NoError(t, rpcClient.Init())

	return rpcClient, validatorMulti
}

func TestTokenAndClone(t *testing.T) {
	rpcClient, acc := newTestChain(t)

	ctr := neotest.CompileFile(t, acc.ScriptHash(), "../contracts/minime", "../contracts/minime/config.yml")

	prm := Prm{
		Logger:       zaptest.NewLogger(t),
		Blockchain:   rpcClient,
		LocalAccount: acc,
		Common: CommonDeployPrm{
			NEF:      *ctr.NEF,
			Manifest: *ctr.Manifest,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tokenAddr, err := Token(ctx, TokenPrm{
		Prm: prm,
		Settings: TokenSettings{
			Name:             "MiniMe Test Token",
			Symbol:           "MMT",
			Decimals:         18,
			TransfersEnabled: true,
		},
	})
	require.NoError(t, err)

	token := minime.NewReader(invoker.New(rpcClient, nil), tokenAddr)

	symbol, err := token.Symbol()
	require.NoError(t, err)
	require.Equal(t, "MMT", symbol)

	controller, err := token.Controller()
	require.NoError(t, err)
	require.Equal(t, acc.ScriptHash(), controller)

	_, isClone, err := token.ParentToken()
	require.NoError(t, err)
	require.False(t, isClone)

	// repeated deployment is a no-op
	again, err := Token(ctx, TokenPrm{
		Prm:      prm,
		Settings: TokenSettings{Symbol: "MMT"},
	})
	require.NoError(t, err)
	require.Equal(t, tokenAddr, again)

	cloneAddr, err := Clone(ctx, ClonePrm{
		Prm:      prm,
		Settings: TokenSettings{Name: "MiniMe Clone", Symbol: "MMC"},
		Parent:   tokenAddr,
	})
	require.NoError(t, err)
	require.NotEqual(t, tokenAddr, cloneAddr)

	clone := minime.NewReader(invoker.New(rpcClient, nil), cloneAddr)

	parent, isClone, err := clone.ParentToken()
	require.NoError(t, err)
	require.True(t, isClone)
	require.Equal(t, tokenAddr, parent)

	snapshot, err := clone.ParentSnapShotBlock()
	require.NoError(t, err)
	created, err := clone.CreationBlock()
	require.NoError(t, err)
	require.Less(t, snapshot.Int64(), created.Int64())

	_, err = Clone(ctx, ClonePrm{
		Prm:      prm,
		Settings: TokenSettings{Symbol: "MMC"},
		Parent:   util.Uint160{0xde, 0xad},
	})
	require.ErrorIs(t, err, ErrParentNotFound)
}
