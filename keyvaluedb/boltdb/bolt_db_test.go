package boltdb

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestNew_Options(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "photon.db")

	_, err := New(dbFile, WithBucket(""))
	require.EqualError(t, err, "bucket name is empty")
	_, err = New(dbFile, WithEncoding(nil, json.Unmarshal))
	require.EqualError(t, err, "record encoder and decoder must be set")

	db, err := New(dbFile, WithBucket("records"), WithEncoding(json.Marshal, json.Unmarshal))
	require.NoError(t, err)
	require.NoError(t, db.Write([]byte("config"), map[string]uint64{"nonce": 9}))

	// file is locked by the open db
	_, err = New(dbFile, WithOpenTimeout(50*time.Millisecond))
	require.ErrorContains(t, err, "file is locked by another process")
	require.NoError(t, db.Close())

	// records are stored JSON encoded into the "records" bucket
	raw, err := bolt.Open(dbFile, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, raw.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("records"))
		require.NotNil(t, b)
		require.JSONEq(t, `{"nonce":9}`, string(b.Get([]byte("config"))))
		require.Nil(t, tx.Bucket([]byte(DefaultBucket)))
		return nil
	}))
	require.NoError(t, raw.Close())

	_, err = New(dbFile, WithReadOnly())
	require.ErrorContains(t, err, `bucket "photon" not found`)

	ro, err := New(dbFile, WithReadOnly(), WithBucket("records"), WithEncoding(json.Marshal, json.Unmarshal))
	require.NoError(t, err)
	defer ro.Close()
	var v map[string]uint64
	found, err := ro.Read([]byte("config"), &v)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 9, v["nonce"])
	_, err = ro.StartTx()
	require.Error(t, err)
}

