package memorydb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/keyvaluedb"
)

type record struct {
	Name  string
	Value uint64
}

func newDB(t *testing.T) *MemoryDB {
	t.Helper()
	db, err := New()
	require.NoError(t, err)
	return db
}

func isEmpty(t *testing.T, db *MemoryDB) bool {
	empty, err := keyvaluedb.IsEmpty(db)
	require.NoError(t, err)
	return empty
}

func TestMemDB_TestIsEmpty(t *testing.T) {
	db := newDB(t)
	require.True(t, isEmpty(t, db))
	require.True(t, db.Empty())
	require.NoError(t, db.Write([]byte("foo"), "test"))
	require.False(t, isEmpty(t, db))
	require.False(t, db.Empty())
	empty, err := keyvaluedb.IsEmpty(nil)
	require.ErrorContains(t, err, "db is nil")
	require.True(t, empty)
}

func TestMemDB_TestInvalidWriteAndRead(t *testing.T) {
	db := newDB(t)
	var rec *record
	require.Error(t, db.Write([]byte("record"), rec))
	require.Error(t, db.Write([]byte(""), 1))
	require.Error(t, db.Write(nil, 1))
	var value uint64
	found, err := db.Read(nil, &value)
	require.Error(t, err)
	require.False(t, found)
	found, err = db.Read([]byte("test"), nil)
	require.Error(t, err)
	require.False(t, found)
	require.Error(t, db.Delete(nil))
	require.True(t, isEmpty(t, db))
}

func TestMemDB_WriteReadDelete(t *testing.T) {
	db := newDB(t)
	in := &record{Name: "a", Value: 1}
	require.NoError(t, db.Write([]byte("rec"), in))

	out := &record{}
	found, err := db.Read([]byte("rec"), out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)

	// wrong type
	var s string
	found, err = db.Read([]byte("rec"), &s)
	require.Error(t, err)
	require.True(t, found)

	require.NoError(t, db.Delete([]byte("rec")))
	found, err = db.Read([]byte("rec"), out)
	require.NoError(t, err)
	require.False(t, found)
	// delete non-existing key
	require.NoError(t, db.Delete([]byte("rec")))
}

func TestMemDB_SerializeError(t *testing.T) {
	db := newDB(t)
	require.Error(t, db.Write([]byte("channel"), make(chan int)))
}

func TestMemDB_MockWriteError(t *testing.T) {
	db := newDB(t)
	errDiskFull := errors.New("disk full")
	db.MockWriteError(errDiskFull)
	require.ErrorIs(t, db.Write([]byte("k"), 1), errDiskFull)

	tx, err := db.StartTx()
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte("k"), 1))
	require.ErrorIs(t, tx.Commit(), errDiskFull)
	require.True(t, isEmpty(t, db))

	db.MockWriteError(nil)
	require.NoError(t, db.Write([]byte("k"), 1))
}

func TestMemDB_Iterators(t *testing.T) {
	db := newDB(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Write([]byte(fmt.Sprintf("key_%d", i)), i))
	}
	require.NoError(t, db.Write([]byte("other"), 100))

	it := db.First()
	require.Equal(t, []byte("key_0"), it.Key())
	var cnt int
	for ; it.Valid(); it.Next() {
		cnt++
	}
	require.Equal(t, 6, cnt)
	require.NoError(t, it.Close())
	require.Nil(t, it.Key())
	require.Error(t, it.Value(&cnt))

	it = db.Find([]byte("key_2"))
	var v int
	require.NoError(t, it.Value(&v))
	require.Equal(t, 2, v)
	require.NoError(t, it.Close())

	it = db.Find([]byte("zzz"))
	require.False(t, it.Valid())

	// prefix scan starting from the middle
	var got []int
	err := keyvaluedb.ForEachWithPrefix(db, []byte("key_"), []byte("key_3"), func(key []byte, it keyvaluedb.Iterator) error {
		var v int
		if err := it.Value(&v); err != nil {
			return err
		}
		got = append(got, v)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{3, 4}, got)

	got = nil
	err = keyvaluedb.ForEachWithPrefix(db, []byte("key_"), nil, func(key []byte, it keyvaluedb.Iterator) error {
		got = append(got, len(got))
		if len(got) == 2 {
			return keyvaluedb.ErrStopIteration
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestMemDB_Tx(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.Write([]byte("a"), 1))
	require.NoError(t, db.Write([]byte("b"), 2))

	tx, err := db.StartTx()
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte("c"), 3))
	require.NoError(t, tx.Delete([]byte("a")))

	// tx sees its own changes, db doesn't
	var v int
	found, err := tx.Read([]byte("c"), &v)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, v)
	found, err = tx.Read([]byte("a"), &v)
	require.NoError(t, err)
	require.False(t, found)
	found, err = tx.Read([]byte("b"), &v)
	require.NoError(t, err)
	require.True(t, found)
	found, err = db.Read([]byte("c"), &v)
	require.NoError(t, err)
	require.False(t, found)

	// concurrent change to other key survives the commit
	require.NoError(t, db.Write([]byte("d"), 4))

	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), errTxClosed)
	require.ErrorIs(t, tx.Write([]byte("x"), 1), errTxClosed)
	_, err = tx.Read([]byte("x"), &v)
	require.ErrorIs(t, err, errTxClosed)

	for k, want := range map[string]bool{"a": false, "b": true, "c": true, "d": true} {
		found, err = db.Read([]byte(k), &v)
		require.NoError(t, err)
		require.Equal(t, want, found, "key %s", k)
	}
}

func TestMemDB_TxRollback(t *testing.T) {
	db := newDB(t)
	tx, err := db.StartTx()
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte("a"), 1))
	require.NoError(t, tx.Rollback())
	require.True(t, isEmpty(t, db))
	require.ErrorIs(t, tx.Delete([]byte("a")), errTxClosed)

	_, err = NewMapTx(nil)
	require.Error(t, err)
}
