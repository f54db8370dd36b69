package mdb

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// table is a read-only handle to an LMDB named database. The transaction
// is opened with RawRead, so every slice the engine returns points into
// the memory map and is copied before it leaves this package.
type table struct {
	txn  *lmdb.Txn
	dbi  lmdb.DBI
	name string
}

// Get gets the value for the given key.
// This method is part of the database.ReadTable interface.
func (tbl *table) Get(key []byte) ([]byte, error) {
	data, err := tbl.txn.Get(tbl.dbi, key)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return nil, errors.Wrapf(database.ErrNotFound,
				"key %x in table '%s'", key, tbl.name)
		}
		return nil, database.NewBackendError(err,
			"could not get key %x in table '%s'", key, tbl.name)
	}
	return copyBytes(data), nil
}

// Has returns true if the table contains the given key.
// This method is part of the database.ReadTable interface.
func (tbl *table) Has(key []byte) (bool, error) {
	_, err := tbl.txn.Get(tbl.dbi, key)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return false, nil
		}
		return false, database.NewBackendError(err,
			"could not get key %x in table '%s'", key, tbl.name)
	}
	return true, nil
}

// First returns the entry with the smallest key.
// This method is part of the database.ReadTable interface.
func (tbl *table) First() (key, value []byte, found bool, err error) {
	return tbl.extremum(lmdb.First)
}

// Last returns the entry with the largest key.
// This method is part of the database.ReadTable interface.
func (tbl *table) Last() (key, value []byte, found bool, err error) {
	return tbl.extremum(lmdb.Last)
}

func (tbl *table) extremum(op uint) (key, value []byte, found bool, err error) {
	cur, err := tbl.txn.OpenCursor(tbl.dbi)
	if err != nil {
		return nil, nil, false, database.NewBackendError(err,
			"could not open a cursor on table '%s'", tbl.name)
	}
	defer cur.Close()
	rawKey, rawValue, err := cur.Get(nil, nil, op)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, database.NewBackendError(err,
			"could not position a cursor on table '%s'", tbl.name)
	}
	return copyBytes(rawKey), copyBytes(rawValue), true, nil
}

// Len returns the number of entries in the table.
// This method is part of the database.ReadTable interface.
func (tbl *table) Len() (uint64, error) {
	stat, err := tbl.txn.Stat(tbl.dbi)
	if err != nil {
		return 0, database.NewBackendError(err, "could not stat table '%s'", tbl.name)
	}
	return stat.Entries, nil
}

// Cursor begins a new cursor over the table.
// This method is part of the database.ReadTable interface.
func (tbl *table) Cursor() (database.Cursor, error) {
	cur, err := tbl.txn.OpenCursor(tbl.dbi)
	if err != nil {
		return nil, database.NewBackendError(err,
			"could not open a cursor on table '%s'", tbl.name)
	}
	return &cursor{cur: cur, tableName: tbl.name}, nil
}

// rwTable is a read-write handle to an LMDB named database.
type rwTable struct {
	table
	parent *writeTxn
}

// Put sets the value for the given key.
// This method is part of the database.WriteTable interface.
func (tbl *rwTable) Put(key, value []byte) error {
	if len(key) > maxKeySize {
		return errors.Wrapf(database.ErrKeyTooLarge,
			"key of %d bytes in table '%s' exceeds the %d byte limit",
			len(key), tbl.name, maxKeySize)
	}
	err := tbl.txn.Put(tbl.dbi, key, value, 0)
	if err != nil {
		switch {
		case lmdb.IsMapFull(err):
			return errors.Wrapf(database.ErrResizeNeeded,
				"put of %d bytes failed", len(key)+len(value))
		case lmdb.IsErrno(err, lmdb.BadValSize):
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
	err := tbl.txn.Del(tbl.dbi, key, nil)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return nil
		}
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
