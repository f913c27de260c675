package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// IsAuthorized checks whether addr is either a witnessed signer of the
// transaction or a smart contract calling the executing one.
func IsAuthorized(addr interop.Hash160) bool {
	if len(addr) != interop.Hash160Len {
		return false
	}

	if runtime.CheckWitness(addr) {
		return true
	}

	// Check if a smart contract is calling script hash
	return runtime.GetCallingScriptHash().Equals(addr)
}

// CheckAuthorized checks authorization of addr (see IsAuthorized).
// It panics with panicMsg on fail.
func CheckAuthorized(addr interop.Hash160, panicMsg string) {
	if !IsAuthorized(addr) {
		panic(panicMsg)
	}
}
