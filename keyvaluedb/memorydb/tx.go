package memorydb

import (
	"errors"
	"fmt"

	"github.com/photon-ccm/photon/keyvaluedb"
)

var errTxClosed = errors.New("tx closed")

/*
Tx buffers changes in memory and applies them to the DB on Commit. Reads
inside the tx see the pending changes of the tx.
*/
type Tx struct {
	mem     *MemoryDB
	writes  map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

func NewMapTx(m *MemoryDB) (*Tx, error) {
	if m == nil {
		return nil, fmt.Errorf("memory db is nil")
	}
	return &Tx{
		mem:     m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}, nil
}

func (t *Tx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	if t.closed {
		return false, fmt.Errorf("memdb tx read failed: %w", errTxClosed)
	}
	if _, ok := t.deletes[string(key)]; ok {
		return false, nil
	}
	if data, ok := t.writes[string(key)]; ok {
		return true, t.mem.decoder(data, v)
	}
	return t.mem.Read(key, v)
}

func (t *Tx) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	if t.closed {
		return fmt.Errorf("memdb tx write failed: %w", errTxClosed)
	}
	b, err := t.mem.encoder(value)
	if err != nil {
		return err
	}
	delete(t.deletes, string(key))
	t.writes[string(key)] = b
	return nil
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.closed {
		return fmt.Errorf("memdb tx delete failed: %w", errTxClosed)
	}
	delete(t.writes, string(key))
	t.deletes[string(key)] = struct{}{}
	return nil
}

func (t *Tx) Rollback() error {
	t.closed = true
	t.writes, t.deletes = nil, nil
	return nil
}

func (t *Tx) Commit() error {
	if t.closed {
		return fmt.Errorf("memdb tx commit failed: %w", errTxClosed)
	}
	t.closed = true

	t.mem.lock.Lock()
	defer t.mem.lock.Unlock()
	if t.mem.writeErr != nil {
		return t.mem.writeErr
	}
	for k := range t.deletes {
		delete(t.mem.db, k)
	}
	for k, v := range t.writes {
		t.mem.db[k] = v
	}
	return nil
}
