package minime_test

import (
	"context"
	"fmt"
	"log"

	"github.com/nspcc-dev/minime-contract/rpc/minime"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
)

// Print the whole balance history of the account together with the balance
// inherited from the parent token if the token is a clone.
func ExampleContractReader_FullBalanceHistory() {
	const (
		rpcEndpoint  = "http://localhost:30333"
		tokenAddress = "NfgHwwTi3wHAS8aFAN243C5vGbkYDpqLHP"
		account      = "NbUgTSFvPmsRxmGeWpuuGeJUoRoi6PErcM"
	)

	c, err := rpcclient.New(context.Background(), rpcEndpoint, rpcclient.Options{})
	if err != nil {
		log.Fatal(err)
	}

	err = c.Init()
	if err != nil {
		log.Fatal(err)
	}

	tokenHash, err := address.StringToUint160(tokenAddress)
	if err != nil {
		log.Fatal(err)
	}

	accountHash, err := address.StringToUint160(account)
	if err != nil {
		log.Fatal(err)
	}

	token := minime.NewReader(invoker.New(c, nil), tokenHash)

	cps, err := token.FullBalanceHistory(accountHash)
	if err != nil {
		log.Fatal(err)
	}

	parent, ok, err := token.ParentToken()
	if err != nil {
		log.Fatal(err)
	}

	if ok {
		snapshot, err := token.ParentSnapShotBlock()
		if err != nil {
			log.Fatal(err)
		}

		inherited, err := minime.NewReader(invoker.New(c, nil), parent).BalanceOfAt(accountHash, snapshot)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("inherited from %s at block %s: %s\n", address.Uint160ToString(parent), snapshot, inherited)
	}

	for _, cp := range cps {
		fmt.Printf("from block %s: %s\n", cp.FromBlock, cp.Value)
	}
}
