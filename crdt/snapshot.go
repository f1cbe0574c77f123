package crdt

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var snapshotKey = []byte("crdtdb/snapshot")

// SnapshotStore is a badger-backed persistence layer for a Replica. Only the
// latest snapshot is kept; there is no operation log on disk, so a snapshot
// must be taken after every batch of applied operations a caller cares about
// surviving a restart.
type SnapshotStore struct {
	db *badger.DB
}

// OpenSnapshotStore opens (creating if absent) a badger database rooted at
// path.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("crdt: opening snapshot store %s: %w", path, err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close closes the underlying badger database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save persists r's current state, overwriting any prior snapshot.
func (s *SnapshotStore) Save(r *Replica) error {
	data, err := encodeSnapshot(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, data)
	})
}

// load returns the most recently saved snapshot, or (nil, nil) if none
// exists yet.
func (s *SnapshotStore) load() ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("crdt: reading snapshot: %w", err)
	}
	return data, nil
}

// loadLatestSnapshot replaces r's causal graph and value model with the
// contents of its store's most recent snapshot, if one exists. A store with
// no snapshot yet leaves r untouched -- it starts as the fresh, empty replica
// CreateDb already constructed.
func (r *Replica) loadLatestSnapshot() error {
	data, err := r.store.load()
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	cg, model, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	r.cg = cg
	r.model = model
	return nil
}
