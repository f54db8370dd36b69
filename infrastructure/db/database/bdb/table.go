package bdb

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// table is a read-only handle to a bbolt bucket. Slices returned by the
// engine point into the read-only memory map and are copied before they
// leave this package.
type table struct {
	bucket *bolt.Bucket
	name   string
}

// Get gets the value for the given key.
// This method is part of the database.ReadTable interface.
func (tbl *table) Get(key []byte) ([]byte, error) {
	value := tbl.bucket.Get(key)
	if value == nil {
		return nil, errors.Wrapf(database.ErrNotFound,
			"key %x in table '%s'", key, tbl.name)
	}
	return copyBytes(value), nil
}

// Has returns true if the table contains the given key.
// This method is part of the database.ReadTable interface.
func (tbl *table) Has(key []byte) (bool, error) {
	return tbl.bucket.Get(key) != nil, nil
}

// First returns the entry with the smallest key.
// This method is part of the database.ReadTable interface.
func (tbl *table) First() (key, value []byte, found bool, err error) {
	rawKey, rawValue := tbl.bucket.Cursor().First()
	if rawKey == nil {
		return nil, nil, false, nil
	}
	return copyBytes(rawKey), copyBytes(rawValue), true, nil
}

// Last returns the entry with the largest key.
// This method is part of the database.ReadTable interface.
func (tbl *table) Last() (key, value []byte, found bool, err error) {
	rawKey, rawValue := tbl.bucket.Cursor().Last()
	if rawKey == nil {
		return nil, nil, false, nil
	}
	return copyBytes(rawKey), copyBytes(rawValue), true, nil
}

// Len returns the number of entries in the table.
// This method is part of the database.ReadTable interface.
func (tbl *table) Len() (uint64, error) {
	return uint64(tbl.bucket.Stats().KeyN), nil
}

// Cursor begins a new cursor over the table.
// This method is part of the database.ReadTable interface.
func (tbl *table) Cursor() (database.Cursor, error) {
	return &cursor{cur: tbl.bucket.Cursor(), tableName: tbl.name}, nil
}

// rwTable is a read-write handle to a bbolt bucket.
type rwTable struct {
	table
	parent *writeTxn
}

// Put sets the value for the given key.
// This method is part of the database.WriteTable interface.
func (tbl *rwTable) Put(key, value []byte) error {
	err := tbl.bucket.Put(key, value)
	if err != nil {
		switch {
		case errors.Is(err, bolt.ErrKeyTooLarge):
			return errors.Wrapf(database.ErrKeyTooLarge,
				"key of %d bytes in table '%s'", len(key), tbl.name)
		case errors.Is(err, bolt.ErrValueTooLarge):
			return errors.Wrapf(database.ErrValueTooLarge,
				"value of %d bytes in table '%s'", len(value), tbl.name)
		}
		return database.NewBackendError(err,
			"could not put key %x in table '%s'", key, tbl.name)
	}
	tbl.parent.bytesWritten += uint64(len(key) + len(value))
	return nil
}

// Delete deletes the value for the given key. Deleting a missing key is
// not an error.
// This method is part of the database.WriteTable interface.
func (tbl *rwTable) Delete(key []byte) error {
	err := tbl.bucket.Delete(key)
	if err != nil {
		return database.NewBackendError(err,
			"could not delete key %x in table '%s'", key, tbl.name)
	}
	tbl.parent.bytesWritten += uint64(len(key))
	return nil
}

func copyBytes(data []byte) []byte {
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied
}
