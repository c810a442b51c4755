// ABOUTME: Durable BadgerDB-backed record store for entity snapshots and pending operations
// ABOUTME: Provides crash-safe put/get/remove plus ordered pending-operation listing
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/tradehand/tradehand/models"
)

// ErrNotFound is returned when a snapshot or operation does not exist.
var ErrNotFound = errors.New("store: not found")

// StorageError wraps a local persistence I/O failure. Storage failures are
// fatal to the current operation and are never retried automatically.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// OpRecord is a raw persisted pending operation. OpID keys are ULIDs, so
// lexicographic key order is enqueue order.
type OpRecord struct {
	EntityType models.EntityType
	OpID       string
	Data       []byte
}

// Store persists entity snapshots, pending operations, and local-to-server
// id mappings in a single BadgerDB instance. Writes are durable once the
// call returns.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store, used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}

func snapshotKey(entity models.EntityType, localID string) []byte {
	return []byte("snap:" + string(entity) + ":" + localID)
}

func operationKey(entity models.EntityType, opID string) []byte {
	return []byte("op:" + string(entity) + ":" + opID)
}

func operationPrefix(entity models.EntityType) []byte {
	return []byte("op:" + string(entity) + ":")
}

func serverIDKey(entity models.EntityType, localID string) []byte {
	return []byte("sid:" + string(entity) + ":" + localID)
}

func (s *Store) get(key []byte) ([]byte, error) {
	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return result, nil
}

func (s *Store) set(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return &StorageError{Op: "set", Err: err}
	}
	return nil
}

// delete is a no-op for absent keys.
func (s *Store) delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// PutSnapshot durably writes an entity snapshot, overwriting any existing
// snapshot for the same key.
func (s *Store) PutSnapshot(entity models.EntityType, localID string, data []byte) error {
	return s.set(snapshotKey(entity, localID), data)
}

// GetSnapshot returns the stored snapshot or ErrNotFound.
func (s *Store) GetSnapshot(entity models.EntityType, localID string) ([]byte, error) {
	return s.get(snapshotKey(entity, localID))
}

// RemoveSnapshot deletes a snapshot. Removing an absent key is not an error.
func (s *Store) RemoveSnapshot(entity models.EntityType, localID string) error {
	return s.delete(snapshotKey(entity, localID))
}

// PutOperation durably writes a serialized pending operation under its
// ULID position key.
func (s *Store) PutOperation(entity models.EntityType, opID string, data []byte) error {
	return s.set(operationKey(entity, opID), data)
}

// RemoveOperation deletes an operation. Idempotent.
func (s *Store) RemoveOperation(entity models.EntityType, opID string) error {
	return s.delete(operationKey(entity, opID))
}

// ListOperations returns all persisted operations for an entity type in
// enqueue (key) order, oldest first. Safe to call repeatedly; it never
// mutates the store.
func (s *Store) ListOperations(entity models.EntityType) ([]OpRecord, error) {
	prefix := operationPrefix(entity)
	var records []OpRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			records = append(records, OpRecord{
				EntityType: entity,
				OpID:       string(item.Key()[len(prefix):]),
				Data:       data,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return records, nil
}

// ListAllOperations returns pending operations across every entity type.
func (s *Store) ListAllOperations() ([]OpRecord, error) {
	var all []OpRecord
	for _, entity := range models.EntityTypes {
		records, err := s.ListOperations(entity)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// PutServerID records the server-assigned identifier for a local id. The
// mapping outlives the operation that produced it so later updates and
// deletes can target the durable server id.
func (s *Store) PutServerID(entity models.EntityType, localID, serverID string) error {
	return s.set(serverIDKey(entity, localID), []byte(serverID))
}

// GetServerID returns the mapped server id, or "" when the record has never
// synced.
func (s *Store) GetServerID(entity models.EntityType, localID string) (string, error) {
	data, err := s.get(serverIDKey(entity, localID))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RemoveServerID drops the mapping, used after a synced delete retires the
// record entirely.
func (s *Store) RemoveServerID(entity models.EntityType, localID string) error {
	return s.delete(serverIDKey(entity, localID))
}
