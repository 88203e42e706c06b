package keyvaluedb

import (
	"bytes"
	"errors"
	"fmt"
)

// Reader interface for DB
type Reader interface {
	// Read decodes the value stored for the key into "value". Returns false
	// when the key is not found.
	Read(key []byte, value any) (bool, error)
}

// Writer interface for DB
type Writer interface {
	// Write inserts the given value into the DB.
	Write(key []byte, value any) error
	// Delete removes the key from the key-value data store.
	Delete(key []byte) error
}

// DBTx interface for database transactions
// NB! all transactions MUST be completed by either calling Commit() or Rollback() which releases
// the transaction.
type DBTx interface {
	StartTx() (DBTransaction, error)
}

// KeyValueDB is the store of the endpoint records.
type KeyValueDB interface {
	Reader
	Writer
	Iterable
	DBTx
}

type Iterator interface {
	// Next moves the iterator to the next key value pair
	Next()
	// Valid returns state of the iterator, if at the end false it returned
	Valid() bool
	// Key returns the key of the current key/value pair, or nil if not valid.
	Key() []byte
	// Value returns the value of the current key/value pair, or error if not valid.
	Value(value any) error
	// Close releases associated resources. Release should always succeed and can
	// be called multiple times without causing error.
	Close() error
}

// Iterable wraps the NewIterator methods of a backing data store.
type Iterable interface {
	// First creates a binary-alphabetical forward iterator starting with first item.
	// If the DB is empty the returned iterator returned is not valid (it.Valid() == false)
	// NB! when done iterator MUST be released with Close() or next DB operation will result in deadlock
	First() Iterator
	// Find returns forward iterator to the closest binary-alphabetical match.
	// If no match or DB is empty the returned iterator returned is not valid (it.Valid() == false)
	// NB! when done iterator MUST be released with Close() or next DB operation will result in deadlock
	Find(key []byte) Iterator
}

// DBTransaction key value database transaction
type DBTransaction interface {
	Writer
	Reader
	// Commit commits all pending changes
	Commit() error
	// Rollback reverts everything and nothing is changed
	Rollback() error
}

// IsEmpty is returns true if the key value DB is empty
func IsEmpty(db KeyValueDB) (empty bool, err error) {
	if db == nil {
		return true, fmt.Errorf("db is nil")
	}
	it := db.First()
	defer func() { err = it.Close() }()
	return !it.Valid(), err
}

/*
ForEachWithPrefix calls "fn" for every key starting with "prefix", in key
order, starting from the key "from" (or the first key with the prefix when
"from" is before it). Iteration stops when "fn" returns ErrStopIteration or
any other error, the latter is returned to the caller.
*/
func ForEachWithPrefix(db Iterable, prefix, from []byte, fn func(key []byte, it Iterator) error) (rErr error) {
	if bytes.Compare(from, prefix) < 0 {
		from = prefix
	}
	it := db.Find(from)
	defer func() { rErr = errors.Join(rErr, it.Close()) }()

	for ; it.Valid() && bytes.HasPrefix(it.Key(), prefix); it.Next() {
		if err := fn(it.Key(), it); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}

// ErrStopIteration may be returned by the ForEachWithPrefix callback to end the iteration.
var ErrStopIteration = errors.New("stop iteration")
