package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ErrContractNotFound is returned when the requested contract is missing in
// the dump.
var ErrContractNotFound = errors.New("contract not found in the dump")

// IterateDumps iterates over all dumps collected by the Creator model in the
// specified directory, and passes ID and Reader of each dump into f. Files
// not matching dump naming are skipped, subdirectories are not visited.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read dump directory: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sep+statesSuffix) {
			continue
		}

		var id ID

		err = id.decodeString(name)
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", name, err)
		}

		r, err := Open(dir, id)
		if err != nil {
			return err
		}

		f(id, r)
	}

	return nil
}

// Open reads the dump with the given ID from the directory.
func Open(dir string, id ID) (*Reader, error) {
	files, err := openDumpFiles(dir, id, false)
	if err != nil {
		return nil, fmt.Errorf("open dump '%s': %w", id, err)
	}
	defer files.close()

	var r Reader

	err = r.decode(files.states, files.storage)
	if err != nil {
		return nil, fmt.Errorf("decode dump '%s': %w", id, err)
	}

	return &r, nil
}

// KeyValue is a binary storage item of the contract.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Reader reads contracts collected in the superior dump.
type Reader struct {
	states   []contractRecord
	mStorage map[string][]KeyValue
}

func (x *Reader) decode(states, storage io.Reader) error {
	err := json.NewDecoder(states).Decode(&x.states)
	if err != nil {
		return fmt.Errorf("decode contract states from JSON: %w", err)
	}

	items := csv.NewReader(storage)
	items.FieldsPerRecord = 3
	items.ReuseRecord = true

	x.mStorage = make(map[string][]KeyValue, len(x.states))

	for {
		rec, err := items.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		var kv KeyValue

		kv.Key, err = binEncoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		kv.Value, err = binEncoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.mStorage[rec[0]] = append(x.mStorage[rec[0]], kv)
	}
}

// IterateContractStates iterates over all contracts from the superior dump and
// passes their states into f.
func (x *Reader) IterateContractStates(f func(name string, _state state.Contract)) {
	for i := range x.states {
		f(x.states[i].Name, x.states[i].State)
	}
}

// IterateContractStorages iterates over all contracts from the superior dump
// and passes their storage items into f.
func (x *Reader) IterateContractStorages(f func(name string, key, value []byte)) {
	for name, kvs := range x.mStorage {
		for i := range kvs {
			f(name, kvs[i].Key, kvs[i].Value)
		}
	}
}

// Contract returns state and storage items of the named contract.
func (x *Reader) Contract(name string) (state.Contract, []KeyValue, error) {
	for i := range x.states {
		if x.states[i].Name == name {
			return x.states[i].State, x.mStorage[name], nil
		}
	}
	return state.Contract{}, nil, fmt.Errorf("%w: '%s'", ErrContractNotFound, name)
}

// ContractByHash returns name, state and storage items of the contract with
// the given hash.
func (x *Reader) ContractByHash(h util.Uint160) (string, state.Contract, []KeyValue, error) {
	for i := range x.states {
		if x.states[i].State.Hash == h {
			name := x.states[i].Name
			return name, x.states[i].State, x.mStorage[name], nil
		}
	}
	return "", state.Contract{}, nil, fmt.Errorf("%w: %s", ErrContractNotFound, h.StringLE())
}
