package mdb

import (
	"runtime"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// readTxn is a read-only LMDB transaction. It observes the snapshot taken
// when it began and holds one of the environment's reader slots until it
// is discarded.
type readTxn struct {
	txn  *lmdb.Txn
	done bool
}

// Table opens the named table for reading.
// This method is part of the database.ReadTxn interface.
func (t *readTxn) Table(name string) (database.ReadTable, error) {
	if t.done {
		return nil, errors.WithStack(database.ErrTxClosed)
	}
	dbi, err := t.txn.OpenDBI(name, 0)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return nil, errors.Wrapf(database.ErrTableNotFound, "table '%s'", name)
		}
		return nil, database.NewBackendError(err, "could not open table '%s'", name)
	}
	return &table{txn: t.txn, dbi: dbi, name: name}, nil
}

// Discard releases the transaction and its reader slot. It is idempotent.
// This method is part of the database.ReadTxn interface.
func (t *readTxn) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Abort()
}

// writeTxn is a read-write LMDB transaction. It is pinned to the OS
// thread that began it until it is committed or discarded.
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
	dbi, err := t.txn.OpenDBI(name, lmdb.Create)
	if err != nil {
		return nil, database.NewBackendError(err, "could not open table '%s'", name)
	}
	return &rwTable{table: table{txn: t.txn, dbi: dbi, name: name}, parent: t}, nil
}

// Commit atomically applies the transaction's mutations.
// This method is part of the database.WriteTxn interface.
func (t *writeTxn) Commit() error {
	if t.done {
		return errors.WithStack(database.ErrTxClosed)
	}
	t.done = true
	err := t.txn.Commit()
	runtime.UnlockOSThread()
	t.env.flagsMtx.RUnlock()
	if err != nil {
		if lmdb.IsMapFull(err) {
			return errors.Wrapf(database.ErrResizeNeeded, "commit failed: %s", err)
		}
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
	t.discard()
	return nil
}

// Discard rolls the transaction back unless it was already closed.
// This method is part of the database.ReadTxn interface.
func (t *writeTxn) Discard() {
	if t.done {
		return
	}
	t.discard()
}

func (t *writeTxn) discard() {
	t.done = true
	t.txn.Abort()
	runtime.UnlockOSThread()
	t.env.flagsMtx.RUnlock()
}
