package database_test

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

func TestTransactionReadAfterWrite(t *testing.T) {
	testForAllEnvironmentTypes(t, "TestTransactionReadAfterWrite", testTransactionReadAfterWrite)
}

func testTransactionReadAfterWrite(t *testing.T, env database.Environment, testName string) {
	txn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	defer txn.Discard()

	tbl, err := txn.TableRw(testTableName)
	if err != nil {
		t.Fatalf("%s: TableRw unexpectedly "+
			"failed: %s", testName, err)
	}

	// Put a value and make sure the same transaction sees it
	// immediately
	key := []byte("key")
	value := []byte("value")
	err = tbl.Put(key, value)
	if err != nil {
		t.Fatalf("%s: Put unexpectedly "+
			"failed: %s", testName, err)
	}
	returnedValue, err := tbl.Get(key)
	if err != nil {
		t.Fatalf("%s: Get unexpectedly "+
			"failed: %s", testName, err)
	}
	if !bytes.Equal(returnedValue, value) {
		t.Fatalf("%s: Get returned "+
			"wrong value. Want: %s, got: %s", testName, value, returnedValue)
	}

	// Delete the value and make sure the same transaction no longer
	// sees it
	err = tbl.Delete(key)
	if err != nil {
		t.Fatalf("%s: Delete unexpectedly "+
			"failed: %s", testName, err)
	}
	_, err = tbl.Get(key)
	if !database.IsNotFoundError(err) {
		t.Fatalf("%s: Get returned "+
			"wrong error: %s", testName, err)
	}
}

func TestTransactionSnapshotIsolation(t *testing.T) {
	testForAllEnvironmentTypes(t, "TestTransactionSnapshotIsolation", testTransactionSnapshotIsolation)
}

func testTransactionSnapshotIsolation(t *testing.T, env database.Environment, testName string) {
	// Create the table up front so the read transaction can open it
	populateTableForTest(t, env, testName, []keyValuePair{
		{key: []byte("existing"), value: []byte("value")},
	})

	// Begin a read transaction before the write below commits
	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	defer readTxn.Discard()

	// Commit a new key in a write transaction
	writeTxn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	defer writeTxn.Discard()
	writeTable, err := writeTxn.TableRw(testTableName)
	if err != nil {
		t.Fatalf("%s: TableRw unexpectedly "+
			"failed: %s", testName, err)
	}
	newKey := []byte("new")
	err = writeTable.Put(newKey, []byte("value"))
	if err != nil {
		t.Fatalf("%s: Put unexpectedly "+
			"failed: %s", testName, err)
	}
	err = writeTxn.Commit()
	if err != nil {
		t.Fatalf("%s: Commit unexpectedly "+
			"failed: %s", testName, err)
	}

	// Make sure the older snapshot does not see the committed key
	readTable, err := readTxn.Table(testTableName)
	if err != nil {
		t.Fatalf("%s: Table unexpectedly "+
			"failed: %s", testName, err)
	}
	_, err = readTable.Get(newKey)
	if !database.IsNotFoundError(err) {
		t.Fatalf("%s: Get returned "+
			"wrong error: %s", testName, err)
	}
	readTxn.Discard()

	// Make sure a fresh snapshot does see it
	freshTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	defer freshTxn.Discard()
	freshTable, err := freshTxn.Table(testTableName)
	if err != nil {
		t.Fatalf("%s: Table unexpectedly "+
			"failed: %s", testName, err)
	}
	has, err := freshTable.Has(newKey)
	if err != nil {
		t.Fatalf("%s: Has unexpectedly "+
			"failed: %s", testName, err)
	}
	if !has {
		t.Fatalf("%s: Has unexpectedly "+
			"returned false", testName)
	}
}

func TestTransactionRollback(t *testing.T) {
	testForAllEnvironmentTypes(t, "TestTransactionRollback", testTransactionRollback)
}

func testTransactionRollback(t *testing.T, env database.Environment, testName string) {
	populateTableForTest(t, env, testName, nil)

	// Put a value and roll the transaction back
	txn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	tbl, err := txn.TableRw(testTableName)
	if err != nil {
		t.Fatalf("%s: TableRw unexpectedly "+
			"failed: %s", testName, err)
	}
	key := []byte("key")
	err = tbl.Put(key, []byte("value"))
	if err != nil {
		t.Fatalf("%s: Put unexpectedly "+
			"failed: %s", testName, err)
	}
	err = txn.Rollback()
	if err != nil {
		t.Fatalf("%s: Rollback unexpectedly "+
			"failed: %s", testName, err)
	}

	// Make sure the rolled-back value is not visible to a new
	// transaction
	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	defer readTxn.Discard()
	readTable, err := readTxn.Table(testTableName)
	if err != nil {
		t.Fatalf("%s: Table unexpectedly "+
			"failed: %s", testName, err)
	}
	has, err := readTable.Has(key)
	if err != nil {
		t.Fatalf("%s: Has unexpectedly "+
			"failed: %s", testName, err)
	}
	if has {
		t.Fatalf("%s: Has unexpectedly "+
			"returned true", testName)
	}
}

func TestTransactionDiscardIsIdempotent(t *testing.T) {
	testForAllEnvironmentTypes(t, "TestTransactionDiscardIsIdempotent", testTransactionDiscardIsIdempotent)
}

func testTransactionDiscardIsIdempotent(t *testing.T, env database.Environment, testName string) {
	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	readTxn.Discard()
	readTxn.Discard()

	writeTxn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	writeTxn.Discard()
	writeTxn.Discard()

	// Discard after Commit must not undo the commit
	writeTxn, err = env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	tbl, err := writeTxn.TableRw(testTableName)
	if err != nil {
		t.Fatalf("%s: TableRw unexpectedly "+
			"failed: %s", testName, err)
	}
	key := []byte("key")
	err = tbl.Put(key, []byte("value"))
	if err != nil {
		t.Fatalf("%s: Put unexpectedly "+
			"failed: %s", testName, err)
	}
	err = writeTxn.Commit()
	if err != nil {
		t.Fatalf("%s: Commit unexpectedly "+
			"failed: %s", testName, err)
	}
	writeTxn.Discard()

	readTxn, err = env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	defer readTxn.Discard()
	readTable, err := readTxn.Table(testTableName)
	if err != nil {
		t.Fatalf("%s: Table unexpectedly "+
			"failed: %s", testName, err)
	}
	has, err := readTable.Has(key)
	if err != nil {
		t.Fatalf("%s: Has unexpectedly "+
			"failed: %s", testName, err)
	}
	if !has {
		t.Fatalf("%s: Has unexpectedly "+
			"returned false", testName)
	}
}

func TestTransactionClosedErrors(t *testing.T) {
	testForAllEnvironmentTypes(t, "TestTransactionClosedErrors", testTransactionClosedErrors)
}

func testTransactionClosedErrors(t *testing.T, env database.Environment, testName string) {
	// A discarded read transaction rejects further use
	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	readTxn.Discard()
	_, err = readTxn.Table(testTableName)
	if !errors.Is(err, database.ErrTxClosed) {
		t.Fatalf("%s: Table returned "+
			"wrong error: %s", testName, err)
	}

	// A committed write transaction rejects further use
	writeTxn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	_, err = writeTxn.TableRw(testTableName)
	if err != nil {
		t.Fatalf("%s: TableRw unexpectedly "+
			"failed: %s", testName, err)
	}
	err = writeTxn.Commit()
	if err != nil {
		t.Fatalf("%s: Commit unexpectedly "+
			"failed: %s", testName, err)
	}
	err = writeTxn.Commit()
	if !errors.Is(err, database.ErrTxClosed) {
		t.Fatalf("%s: Commit returned "+
			"wrong error: %s", testName, err)
	}
	err = writeTxn.Rollback()
	if !errors.Is(err, database.ErrTxClosed) {
		t.Fatalf("%s: Rollback returned "+
			"wrong error: %s", testName, err)
	}
	_, err = writeTxn.TableRw(testTableName)
	if !errors.Is(err, database.ErrTxClosed) {
		t.Fatalf("%s: TableRw returned "+
			"wrong error: %s", testName, err)
	}
}

func TestTableNotFound(t *testing.T) {
	testForAllEnvironmentTypes(t, "TestTableNotFound", testTableNotFound)
}

func testTableNotFound(t *testing.T, env database.Environment, testName string) {
	// A read transaction cannot open a table that was never created
	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly "+
			"failed: %s", testName, err)
	}
	defer readTxn.Discard()
	_, err = readTxn.Table("no-such-table")
	if !errors.Is(err, database.ErrTableNotFound) {
		t.Fatalf("%s: Table returned "+
			"wrong error: %s", testName, err)
	}

	// A write transaction creates the table on open instead
	writeTxn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("%s: BeginRw unexpectedly "+
			"failed: %s", testName, err)
	}
	defer writeTxn.Discard()
	_, err = writeTxn.TableRw("no-such-table")
	if err != nil {
		t.Fatalf("%s: TableRw unexpectedly "+
			"failed: %s", testName, err)
	}
}
