package memorydb

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
)

/*
Itr iterates over snapshot of the DB taken when the iterator was created,
changes made to the DB later are not visible to the iterator.
*/
type Itr struct {
	keys    [][]byte
	values  [][]byte
	decoder DecodeFn
	index   int
}

func NewIterator(db map[string][]byte, d DecodeFn) *Itr {
	it := &Itr{
		index:   -1,
		decoder: d,
		keys:    make([][]byte, 0, len(db)),
	}
	for key := range db {
		it.keys = append(it.keys, []byte(key))
	}
	slices.SortFunc(it.keys, bytes.Compare)
	it.values = make([][]byte, len(it.keys))
	for i, key := range it.keys {
		it.values[i] = db[string(key)]
	}
	return it
}

func (it *Itr) Close() error {
	return nil
}

func (it *Itr) Next() {
	if !it.Valid() {
		return
	}
	it.index++
	if it.index >= len(it.keys) {
		it.index = -1
	}
}

func (it *Itr) Valid() bool {
	return it.index >= 0
}

func (it *Itr) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.keys[it.index]
}

func (it *Itr) Value(v any) error {
	if !it.Valid() {
		return fmt.Errorf("iterator invalid")
	}
	return it.decoder(it.values[it.index], v)
}

func (it *Itr) first() {
	if len(it.keys) > 0 {
		it.index = 0
	}
}

// seek positions the iterator to the first key >= "key".
func (it *Itr) seek(key []byte) {
	idx := sort.Search(len(it.keys), func(i int) bool { return bytes.Compare(it.keys[i], key) >= 0 })
	if idx < len(it.keys) {
		it.index = idx
	} else {
		it.index = -1
	}
}
