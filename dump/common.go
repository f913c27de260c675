package dump

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// ID identifies a single dump within the dump directory.
type ID struct {
	// Label of the blockchain environment, e.g. 'testnet'.
	Label string
	// Block the token states were pulled at.
	Block uint32
}

// ErrInvalidLabel is returned for the dump labels which can not be encoded
// into the file name.
var ErrInvalidLabel = errors.New("invalid dump label")

// Dump file names are '<label>-<block>-<suffix>'.
const (
	sep           = "-"
	statesSuffix  = "contracts.json"
	storageSuffix = "storage.csv"
)

// String returns the ID in the form used as file name prefix.
func (x ID) String() string {
	return fmt.Sprintf("%s%s%d", x.Label, sep, x.Block)
}

func (x ID) validate() error {
	if x.Label == "" || strings.Contains(x.Label, sep) || strings.ContainsRune(x.Label, filepath.Separator) {
		return fmt.Errorf("%w: '%s'", ErrInvalidLabel, x.Label)
	}
	return nil
}

// decodeString restores the ID from the name of the dump states file.
func (x *ID) decodeString(fileName string) error {
	prefix := strings.TrimSuffix(fileName, sep+statesSuffix)

	i := strings.LastIndex(prefix, sep)
	if i <= 0 {
		return fmt.Errorf("missing block number in '%s'", fileName)
	}

	block, err := strconv.ParseUint(prefix[i+1:], 10, 32)
	if err != nil {
		return fmt.Errorf("parse block number: %w", err)
	}

	x.Label, x.Block = prefix[:i], uint32(block)

	return nil
}

func (x ID) path(dir, suffix string) string {
	return filepath.Join(dir, x.String()+sep+suffix)
}

// binary storage keys and values are kept in base64 within CSV.
var binEncoding = base64.StdEncoding

// contractRecord is an element of the JSON array of dumped contracts.
type contractRecord struct {
	Name  string         `json:"name"`
	State state.Contract `json:"state"`
}

// dumpFiles holds both files of a single dump.
type dumpFiles struct {
	states  *os.File
	storage *os.File
}

// openDumpFiles opens files of the dump for reading. With create set, new
// write-only files are created instead, already existing dump is never
// overwritten.
func openDumpFiles(dir string, id ID, create bool) (*dumpFiles, error) {
	flag, perm := os.O_RDONLY, os.FileMode(0)
	if create {
		flag, perm = os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600
	}

	var (
		res dumpFiles
		err error
	)

	res.states, err = os.OpenFile(id.path(dir, statesSuffix), flag, perm)
	if err != nil {
		return nil, fmt.Errorf("open contract states: %w", err)
	}

	res.storage, err = os.OpenFile(id.path(dir, storageSuffix), flag, perm)
	if err != nil {
		_ = res.states.Close()
		if create {
			_ = os.Remove(res.states.Name())
		}
		return nil, fmt.Errorf("open storage items: %w", err)
	}

	return &res, nil
}

func (x *dumpFiles) close() {
	_ = x.storage.Close()
	_ = x.states.Close()
}
