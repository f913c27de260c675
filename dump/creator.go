package dump

import (
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// Creator writes a new dump of token contracts. Each dump consists of two
// files:
//
//	'<label>-<block>-contracts.json': JSON array of named contract states
//	'<label>-<block>-storage.csv': 'name,key,value' records with base64 key and value
//
// Contract states are kept in memory until Flush, storage items are written
// as they come. Existing dumps can be read with Open or IterateDumps.
type Creator struct {
	files   *dumpFiles
	storage *csv.Writer
	records []contractRecord
}

// NewCreator creates files of the dump with the given ID in dir. It fails if
// the dump already exists. Creator must be closed after use.
func NewCreator(dir string, id ID) (*Creator, error) {
	err := id.validate()
	if err != nil {
		return nil, err
	}

	files, err := openDumpFiles(dir, id, true)
	if err != nil {
		return nil, fmt.Errorf("create dump '%s': %w", id, err)
	}

	return &Creator{
		files:   files,
		storage: csv.NewWriter(files.storage),
	}, nil
}

// AddContract registers contract state under the unique name and returns
// writer of its storage items.
func (x *Creator) AddContract(name string, st state.Contract) (*StorageWriter, error) {
	for i := range x.records {
		if x.records[i].Name == name {
			return nil, fmt.Errorf("duplicated contract name '%s'", name)
		}
	}

	x.records = append(x.records, contractRecord{Name: name, State: st})

	return &StorageWriter{name: name, w: x.storage}, nil
}

// Flush writes collected contract states and buffered storage items to the
// files.
func (x *Creator) Flush() error {
	enc := json.NewEncoder(x.files.states)
	enc.SetIndent("", " ")

	if err := enc.Encode(x.records); err != nil {
		return fmt.Errorf("write contract states: %w", err)
	}

	x.storage.Flush()
	if err := x.storage.Error(); err != nil {
		return fmt.Errorf("write storage items: %w", err)
	}

	return nil
}

// Close closes dump files, Creator can't be used after it.
func (x *Creator) Close() {
	x.files.close()
}

// StorageWriter appends storage items of a single contract to the dump.
type StorageWriter struct {
	name string
	w    *csv.Writer
}

// Write adds storage item to the dump.
func (x *StorageWriter) Write(key, value []byte) error {
	rec := [3]string{x.name, binEncoding.EncodeToString(key), binEncoding.EncodeToString(value)}
	if err := x.w.Write(rec[:]); err != nil {
		return fmt.Errorf("write storage item of '%s': %w", x.name, err)
	}
	return nil
}
