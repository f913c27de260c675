/*
Package contracts provides access to compiled MiniMe token contracts.

Compiled contract consists of the NEF file named contract.nef and the manifest
named manifest.json placed in the same directory, the layout produced by
`make build` and neo-go contract compile command.
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

const (
	// MinimeDir is a directory of the MiniMe token contract relative to the
	// repository root.
	MinimeDir = "contracts/minime"

	nefName      = "contract.nef"
	manifestName = "manifest.json"
)

// Contract groups information about Neo contract read from the file system.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

var (
	// ErrInvalidNEF is returned when the NEF file can not be decoded.
	ErrInvalidNEF = errors.New("invalid NEF")
	// ErrInvalidManifest is returned when the manifest file can not be decoded.
	ErrInvalidManifest = errors.New("invalid manifest")
)

// ReadDir reads compiled contract from the OS directory.
func ReadDir(dir string) (Contract, error) {
	return Read(os.DirFS(dir), ".")
}

// Read reads compiled contract from the dir of the given file system.
func Read(fsys fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS always uses "/", so filepath.Join() is not applicable.
	fNEF, err := fsys.Open(path.Join(dir, nefName))
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := fsys.Open(path.Join(dir, manifestName))
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	return c, nil
}
