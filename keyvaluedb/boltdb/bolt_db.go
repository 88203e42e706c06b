/*
Package boltdb implements keyvaluedb.KeyValueDB on top of a single bucket
of a Bolt database file. Endpoint records, the event log and its indexes
share the bucket, keys are distinguished by their prefix so iteration in key
order yields records of one kind in one go.
*/
package boltdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/photon-ccm/photon/keyvaluedb"
)

const (
	DefaultBucket = "photon"
	// DefaultOpenTimeout is how long New waits for the file lock, the endpoint
	// owns the file exclusively so it usually means another instance is running.
	DefaultOpenTimeout = 3 * time.Second
)

type (
	EncodeFn func(v any) ([]byte, error)
	DecodeFn func(data []byte, v any) error

	BoltDB struct {
		db      *bolt.DB
		bucket  []byte
		encoder EncodeFn
		decoder DecodeFn
	}

	Option func(*options)

	options struct {
		bucket   string
		timeout  time.Duration
		readOnly bool
		encoder  EncodeFn
		decoder  DecodeFn
	}
)

var errNotFound = errors.New("db entry not found")

// WithBucket sets name of the bucket the records are stored in.
func WithBucket(name string) Option {
	return func(o *options) { o.bucket = name }
}

// WithOpenTimeout sets how long to wait for the file lock, zero waits forever.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

/*
WithReadOnly opens the file in read-only mode, it may be shared with the
running endpoint. Transactions fail in this mode.
*/
func WithReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// WithEncoding replaces the CBOR encoding of the records.
func WithEncoding(enc EncodeFn, dec DecodeFn) Option {
	return func(o *options) {
		o.encoder = enc
		o.decoder = dec
	}
}

// New opens (creates when missing) the Bolt database file, records are CBOR encoded by default.
func New(dbFile string, opts ...Option) (*BoltDB, error) {
	o := &options{
		bucket:  DefaultBucket,
		timeout: DefaultOpenTimeout,
		encoder: cbor.Marshal,
		decoder: cbor.Unmarshal,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bucket == "" {
		return nil, errors.New("bucket name is empty")
	}
	if o.encoder == nil || o.decoder == nil {
		return nil, errors.New("record encoder and decoder must be set")
	}

	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: o.timeout, ReadOnly: o.readOnly})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("opening bolt db %q: file is locked by another process", dbFile)
		}
		return nil, fmt.Errorf("opening bolt db %q: %w", dbFile, err)
	}
	s := &BoltDB{
		db:      db,
		bucket:  []byte(o.bucket),
		encoder: o.encoder,
		decoder: o.decoder,
	}
	if err = s.ensureBucket(o.readOnly); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return s, nil
}

func (db *BoltDB) Path() string {
	return db.db.Path()
}

func (db *BoltDB) ensureBucket(readOnly bool) error {
	if readOnly {
		return db.db.View(func(tx *bolt.Tx) error {
			if tx.Bucket(db.bucket) == nil {
				return fmt.Errorf("bucket %q not found", db.bucket)
			}
			return nil
		})
	}
	return db.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(db.bucket); err != nil {
			return fmt.Errorf("creating bucket %q: %w", db.bucket, err)
		}
		return nil
	})
}

func (db *BoltDB) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	err := db.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(db.bucket).Get(key)
		if data == nil {
			return errNotFound
		}
		return db.decoder(data, v)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotFound):
		return false, nil
	default:
		return true, recordErr("reading", key, err)
	}
}

/*
Write stores the value in its own Bolt transaction, instructions which
change several records use StartTx instead.
*/
func (db *BoltDB) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	b, err := db.encoder(v)
	if err != nil {
		return recordErr("encoding", key, err)
	}
	if err = db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(db.bucket).Put(key, b)
	}); err != nil {
		return recordErr("writing", key, err)
	}
	return nil
}

func (db *BoltDB) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if err := db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(db.bucket).Delete(key)
	}); err != nil {
		return recordErr("deleting", key, err)
	}
	return nil
}

func (db *BoltDB) First() keyvaluedb.Iterator {
	it := NewIterator(db.db, db.bucket, db.decoder)
	it.first()
	return it
}

func (db *BoltDB) Find(key []byte) keyvaluedb.Iterator {
	it := NewIterator(db.db, db.bucket, db.decoder)
	it.seek(key)
	return it
}

func (db *BoltDB) StartTx() (keyvaluedb.DBTransaction, error) {
	tx, err := NewBoltTx(db.db, db.bucket, db.encoder, db.decoder)
	if err != nil {
		return nil, fmt.Errorf("starting bolt tx: %w", err)
	}
	return tx, nil
}

func (db *BoltDB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

func recordErr(op string, key []byte, err error) error {
	return fmt.Errorf("bolt db %s record %q: %w", op, key, err)
}
