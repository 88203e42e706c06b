package boltdb

import (
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/photon-ccm/photon/keyvaluedb"
)

/*
Tx is read-write Bolt transaction. Bolt allows only one read-write tx at a
time, StartTx blocks until the previous one has been completed.
*/
type Tx struct {
	tx     *bolt.Tx
	b      *bolt.Bucket
	enc    EncodeFn
	dec    DecodeFn
	closed bool
}

var errTxClosed = errors.New("bolt tx closed")

func NewBoltTx(db *bolt.DB, bucket []byte, e EncodeFn, d DecodeFn) (*Tx, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	tx, err := db.Begin(true)
	if err != nil {
		return nil, err
	}
	b := tx.Bucket(bucket)
	if b == nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("bucket %q not found", bucket)
	}
	return &Tx{tx: tx, b: b, enc: e, dec: d}, nil
}

func (t *Tx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	if t.closed {
		return false, errTxClosed
	}
	data := t.b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := t.dec(data, v); err != nil {
		return true, fmt.Errorf("bolt tx read failed: %w", err)
	}
	return true, nil
}

func (t *Tx) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	if t.closed {
		return errTxClosed
	}
	b, err := t.enc(value)
	if err != nil {
		return err
	}
	return t.b.Put(key, b)
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.closed {
		return errTxClosed
	}
	return t.b.Delete(key)
}

func (t *Tx) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.tx.Rollback()
}

func (t *Tx) Commit() error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true
	return t.tx.Commit()
}
