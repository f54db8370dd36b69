package bdb

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// readTxn is a read-only bbolt transaction observing the page-version
// snapshot taken when it began.
type readTxn struct {
	tx   *bolt.Tx
	done bool
}

// Table opens the named table for reading.
// This method is part of the database.ReadTxn interface.
func (t *readTxn) Table(name string) (database.ReadTable, error) {
	if t.done {
		return nil, errors.WithStack(database.ErrTxClosed)
	}
	bucket := t.tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, errors.Wrapf(database.ErrTableNotFound, "table '%s'", name)
	}
	return &table{bucket: bucket, name: name}, nil
}

// Discard releases the transaction. It is idempotent.
// This method is part of the database.ReadTxn interface.
func (t *readTxn) Discard() {
	if t.done {
		return
	}
	t.done = true
	// Read-only bbolt transactions are released by rolling back.
	_ = t.tx.Rollback()
}

// writeTxn is a read-write bbolt transaction.
type writeTxn struct {
	readTxn
	env          *environment
	bytesWritten uint64
}

// Table opens the named table for reading, creating it if it doesn't
// exist. Write transactions create tables on open.
// This method is part of the database.ReadTxn interface.
func (t *writeTxn) Table(name string) (database.ReadTable, error) {
	return t.TableRw(name)
}

// TableRw opens the named table for reading and writing, creating it if
// it doesn't exist.
// This method is part of the database.WriteTxn interface.
func (t *writeTxn) TableRw(name string) (database.WriteTable, error) {
	if t.done {
		return nil, errors.WithStack(database.ErrTxClosed)
	}
	bucket, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, database.NewBackendError(err, "could not open table '%s'", name)
	}
	return &rwTable{table: table{bucket: bucket, name: name}, parent: t}, nil
}

// Commit atomically applies the transaction's mutations.
// This method is part of the database.WriteTxn interface.
func (t *writeTxn) Commit() error {
	if t.done {
		return errors.WithStack(database.ErrTxClosed)
	}
	t.done = true
	err := t.tx.Commit()
	t.env.flagsMtx.RUnlock()
	if err != nil {
		return database.NewBackendError(err, "could not commit the transaction")
	}
	return t.env.afterCommit(t.bytesWritten)
}

// Rollback throws away the transaction's mutations.
// This method is part of the database.WriteTxn interface.
func (t *writeTxn) Rollback() error {
	if t.done {
		return errors.WithStack(database.ErrTxClosed)
	}
	t.done = true
	err := t.tx.Rollback()
	t.env.flagsMtx.RUnlock()
	if err != nil {
		return database.NewBackendError(err, "could not roll back the transaction")
	}
	return nil
}

// Discard rolls the transaction back unless it was already closed.
// This method is part of the database.ReadTxn interface.
func (t *writeTxn) Discard() {
	if t.done {
		return
	}
	t.done = true
	_ = t.tx.Rollback()
	t.env.flagsMtx.RUnlock()
}
