package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var bucketTypes = []byte("types")

// BoltStore is a durable local cache of TypeMetadata, keyed by typeId.
// Coordinator consults it so a process that restarts doesn't need to
// wait on the transport before it can answer DescriptorByTypeID-style
// metadata queries for types it has already seen.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path
// and ensures the metadata bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: open bolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTypes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("metadata: init bolt store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func typeKey(typeID int32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(typeID))
	return k[:]
}

// Put persists m, overwriting whatever was previously stored for its
// TypeID.
func (s *BoltStore) Put(m TypeMetadata) error {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTypes).Put(typeKey(m.TypeID), data)
	})
}

// Get returns the stored metadata for typeID, if any.
func (s *BoltStore) Get(typeID int32) (TypeMetadata, bool, error) {
	var m TypeMetadata
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketTypes).Get(typeKey(typeID))
		if raw == nil {
			return nil
		}
		found = true
		return msgpack.Unmarshal(raw, &m)
	})
	if err != nil {
		return TypeMetadata{}, false, fmt.Errorf("metadata: decode typeId %d: %w", typeID, err)
	}
	return m, found, nil
}

// All returns every TypeMetadata currently stored, for warming a
// Coordinator's in-memory state after a restart.
func (s *BoltStore) All() ([]TypeMetadata, error) {
	var out []TypeMetadata
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTypes).ForEach(func(k, v []byte) error {
			var m TypeMetadata
			if err := msgpack.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("metadata: decode key %x: %w", k, err)
			}
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
