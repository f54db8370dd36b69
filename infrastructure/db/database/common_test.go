package database_test

import (
	"fmt"
	"testing"

	"github.com/caliconet/calicod/infrastructure/db/database"
	"github.com/caliconet/calicod/infrastructure/db/database/bdb"
	"github.com/caliconet/calicod/infrastructure/db/database/mdb"
)

type environmentPrepareFunc func(t *testing.T, testName string) (env database.Environment, name string, teardownFunc func())

// environmentPrepareFuncs is a set of functions, in which each function
// prepares a separate environment type for testing.
// See testForAllEnvironmentTypes for further details.
var environmentPrepareFuncs = []environmentPrepareFunc{
	prepareMDBForTest,
	prepareBDBForTest,
}

func prepareMDBForTest(t *testing.T, testName string) (env database.Environment, name string, teardownFunc func()) {
	// Create a temp environment to run tests against
	path := t.TempDir()
	env, err := mdb.NewEnvironment(database.DefaultConfig(path))
	if err != nil {
		t.Fatalf("%s: NewEnvironment unexpectedly "+
			"failed: %s", testName, err)
	}
	teardownFunc = func() {
		err = env.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly "+
				"failed: %s", testName, err)
		}
	}
	return env, "mdb", teardownFunc
}

func prepareBDBForTest(t *testing.T, testName string) (env database.Environment, name string, teardownFunc func()) {
	// Create a temp environment to run tests against
	path := t.TempDir()
	env, err := bdb.NewEnvironment(database.DefaultConfig(path))
	if err != nil {
		t.Fatalf("%s: NewEnvironment unexpectedly "+
			"failed: %s", testName, err)
	}
	teardownFunc = func() {
		err = env.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly "+
				"failed: %s", testName, err)
		}
	}
	return env, "bdb", teardownFunc
}

// testForAllEnvironmentTypes runs the given testFunc for every
// environment type defined in environmentPrepareFuncs. This is to make
// sure that all supported database engines adhere to the assumptions
// defined in the interfaces in this package.
func testForAllEnvironmentTypes(t *testing.T, testName string,
	testFunc func(t *testing.T, env database.Environment, testName string)) {

	for _, prepareEnvironment := range environmentPrepareFuncs {
		func() {
			env, envType, teardownFunc := prepareEnvironment(t, testName)
			defer teardownFunc()

			testName := fmt.Sprintf("%s: %s", envType, testName)
			testFunc(t, env, testName)
		}()
	}
}

const testTableName = "test-table"

type keyValuePair struct {
	key   []byte
	value []byte
}

func prepareKeyValuePairsForTest() []keyValuePair {
	// Prepare a list of key/value pairs
	entries := make([]keyValuePair, 10)
	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("key%d", i))
		value := []byte("value")
		entries[i] = keyValuePair{key: key, value: value}
	}
	return entries
}

// populateTableForTest writes the given entries into testTableName in a
// single committed write transaction.
func populateTableForTest(t *testing.T, env database.Environment, testName string, entries []keyValuePair) {
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
	for _, entry := range entries {
		err := tbl.Put(entry.key, entry.value)
		if err != nil {
			t.Fatalf("%s: Put unexpectedly "+
				"failed: %s", testName, err)
		}
	}
	err = txn.Commit()
	if err != nil {
		t.Fatalf("%s: Commit unexpectedly "+
			"failed: %s", testName, err)
	}
}
