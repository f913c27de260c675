package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
)

// IsContract checks whether h is a script hash of a deployed contract.
func IsContract(h interop.Hash160) bool {
	return management.GetContract(h) != nil
}

// Min returns the smaller of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
