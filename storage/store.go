/*
Package storage implements the typed record store of the endpoint on top of
the key-value database.

Records:

	config              types.GlobalConfig
	protocol_<id>       types.ProtocolInfo
	op_<hash>           types.OpInfo
*/
package storage

import (
	"errors"
	"fmt"

	"github.com/photon-ccm/photon/keyvaluedb"
	"github.com/photon-ccm/photon/types"
)

const (
	protocolPrefix = "protocol_"
	opPrefix       = "op_"
)

var configKey = []byte("config")

func ConfigKey() []byte { return configKey }

func ProtocolKey(id types.ProtocolID) []byte { return keyvaluedb.Key(protocolPrefix, id[:]) }

func OpKey(hash types.Hash) []byte { return keyvaluedb.Key(opPrefix, hash[:]) }

type Store struct {
	db keyvaluedb.KeyValueDB
}

func New(db keyvaluedb.KeyValueDB) (*Store, error) {
	if db == nil {
		return nil, errors.New("key-value db is nil")
	}
	return &Store{db: db}, nil
}

// DB returns the underlying key-value database.
func (s *Store) DB() keyvaluedb.KeyValueDB { return s.db }

/*
Begin starts read-write transaction. The caller must complete it with
either Commit or Rollback.
*/
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.StartTx()
	if err != nil {
		return nil, fmt.Errorf("starting db transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Config returns the global config, nil when the endpoint hasn't been initialized.
func (s *Store) Config() (*types.GlobalConfig, error) {
	return read[types.GlobalConfig](s.db, configKey)
}

// Protocol returns the registry entry of the protocol, nil when not registered.
func (s *Store) Protocol(id types.ProtocolID) (*types.ProtocolInfo, error) {
	return read[types.ProtocolInfo](s.db, ProtocolKey(id))
}

// Op returns the record of the operation, nil when not loaded.
func (s *Store) Op(hash types.Hash) (*types.OpInfo, error) {
	return read[types.OpInfo](s.db, OpKey(hash))
}

// Protocols returns IDs of all registered protocols in key order.
func (s *Store) Protocols() ([]types.ProtocolID, error) {
	var ids []types.ProtocolID
	err := keyvaluedb.ForEachWithPrefix(s.db, []byte(protocolPrefix), nil, func(key []byte, _ keyvaluedb.Iterator) error {
		id, err := types.BytesToProtocolID(key[len(protocolPrefix):])
		if err != nil {
			return fmt.Errorf("invalid protocol record key %x: %w", key, err)
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing protocols: %w", err)
	}
	return ids, nil
}

// Tx is typed view of a key-value database transaction.
type Tx struct {
	tx keyvaluedb.DBTransaction
}

func (t *Tx) Config() (*types.GlobalConfig, error) {
	return read[types.GlobalConfig](t.tx, configKey)
}

func (t *Tx) SetConfig(cfg *types.GlobalConfig) error {
	return write(t.tx, configKey, cfg)
}

func (t *Tx) Protocol(id types.ProtocolID) (*types.ProtocolInfo, error) {
	return read[types.ProtocolInfo](t.tx, ProtocolKey(id))
}

func (t *Tx) SetProtocol(id types.ProtocolID, pi *types.ProtocolInfo) error {
	return write(t.tx, ProtocolKey(id), pi)
}

func (t *Tx) Op(hash types.Hash) (*types.OpInfo, error) {
	return read[types.OpInfo](t.tx, OpKey(hash))
}

func (t *Tx) SetOp(hash types.Hash, oi *types.OpInfo) error {
	return write(t.tx, OpKey(hash), oi)
}

// KV returns the underlying key-value database transaction.
func (t *Tx) KV() keyvaluedb.DBTransaction { return t.tx }

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing db transaction: %w", err)
	}
	return nil
}

// Rollback discards the changes, it is safe to call it after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func read[T any](r keyvaluedb.Reader, key []byte) (*T, error) {
	v := new(T)
	found, err := r.Read(key, v)
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

func write(w keyvaluedb.Writer, key []byte, v any) error {
	if err := w.Write(key, v); err != nil {
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	return nil
}
