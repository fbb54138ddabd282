package table

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPayloadStore is a durable PayloadStore backed by BadgerDB, for a
// forwarder instance that wants CS contents to survive a restart (spec
// §5 allows the implementation to co-locate metadata and bytes; this is
// the persistent alternative to MemoryPayloadStore). Grounded directly on
// std/object/storage/store_badger.go's Get/Put/key-encoding shape.
//
// Unlike MemoryPayloadStore, durability is delegated entirely to
// BadgerDB's own LSM storage and there is no reference count: Put
// overwrites any value already stored under the same hash, and a single
// Release deletes it, even if Put was called more than once for that hash.
type BadgerPayloadStore struct {
	db *badger.DB
}

// NewBadgerPayloadStore opens (creating if needed) a Badger database at
// path to back CS content storage.
func NewBadgerPayloadStore(path string) (*BadgerPayloadStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path))
	if err != nil {
		return nil, err
	}
	return &BadgerPayloadStore{db: db}, nil
}

// Close releases the underlying Badger database handle.
func (s *BadgerPayloadStore) Close() error {
	return s.db.Close()
}

func contentKey(contentHash uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, contentHash)
	return key
}

func (s *BadgerPayloadStore) Put(contentHash uint64, data []byte) {
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contentKey(contentHash), data)
	})
}

func (s *BadgerPayloadStore) Get(contentHash uint64) (data []byte, ok bool) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contentKey(contentHash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	ok = err == nil && data != nil
	return data, ok
}

// Release deletes the bytes stored under contentHash. No reference count is
// kept, so the first Release removes them regardless of how many Puts
// preceded it.
func (s *BadgerPayloadStore) Release(contentHash uint64) {
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(contentKey(contentHash))
	})
}
