package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

// Version of the token contracts encoded as major*10^6 + minor*10^3 + patch.
// It must match the VERSION file of the repository.
const Version = 1_000_000

// PrevVersion is the oldest version the contracts can be updated from.
const PrevVersion = 1_000_000

// Update failures.
const (
	ErrVersionMismatch = "previous version mismatch"
	ErrAlreadyUpdated  = "contract is already of the latest version"
)

// CheckVersion panics if the contract of the given version can't be updated
// to the current one.
func CheckVersion(from int) {
	switch {
	case from == Version:
		panic(ErrAlreadyUpdated + ": " + std.Itoa(Version, 10))
	case from < PrevVersion:
		panic(ErrVersionMismatch + ": expected >=" + std.Itoa(PrevVersion, 10))
	}
}

// AppendVersion adds current version to the update arguments so the updated
// contract could check it in _deploy.
func AppendVersion(data any) []any {
	var args []any
	if data != nil {
		args = data.([]any)
	}
	return append(args, Version)
}
