package dbservice_test

import (
	"fmt"
	"testing"

	"github.com/caliconet/calicod/infrastructure/db/database"
	"github.com/caliconet/calicod/infrastructure/db/database/bdb"
	"github.com/caliconet/calicod/infrastructure/db/database/mdb"
	"github.com/caliconet/calicod/infrastructure/db/dbservice"
)

const testTableName = "test-table"

type servicePrepareFunc func(t *testing.T, testName string) (
	read *dbservice.ReadHandle, write *dbservice.WriteHandle, name string, teardownFunc func())

// servicePrepareFuncs starts a service over each supported engine.
// Reader-pool behavior must not depend on which engine backs the store,
// so every test runs against both.
var servicePrepareFuncs = []servicePrepareFunc{
	prepareMDBServiceForTest,
	prepareBDBServiceForTest,
}

func testServiceConfig(path string) *database.Config {
	cfg := database.DefaultConfig(path)
	// A fixed reader count keeps chunked requests deterministic across
	// machines
	cfg.ReaderCount = 4
	return cfg
}

func prepareMDBServiceForTest(t *testing.T, testName string) (
	read *dbservice.ReadHandle, write *dbservice.WriteHandle, name string, teardownFunc func()) {

	cfg := testServiceConfig(t.TempDir())
	env, err := mdb.NewEnvironment(cfg)
	if err != nil {
		t.Fatalf("%s: NewEnvironment unexpectedly "+
			"failed: %s", testName, err)
	}
	read, write, err = dbservice.New(env, cfg)
	if err != nil {
		t.Fatalf("%s: New unexpectedly "+
			"failed: %s", testName, err)
	}
	teardownFunc = func() {
		write.Release()
		read.Release()
	}
	return read, write, "mdb", teardownFunc
}

func prepareBDBServiceForTest(t *testing.T, testName string) (
	read *dbservice.ReadHandle, write *dbservice.WriteHandle, name string, teardownFunc func()) {

	cfg := testServiceConfig(t.TempDir())
	env, err := bdb.NewEnvironment(cfg)
	if err != nil {
		t.Fatalf("%s: NewEnvironment unexpectedly "+
			"failed: %s", testName, err)
	}
	read, write, err = dbservice.New(env, cfg)
	if err != nil {
		t.Fatalf("%s: New unexpectedly "+
			"failed: %s", testName, err)
	}
	teardownFunc = func() {
		write.Release()
		read.Release()
	}
	return read, write, "bdb", teardownFunc
}

// testForAllServiceTypes runs the given testFunc over a service backed by
// every supported engine.
func testForAllServiceTypes(t *testing.T, testName string,
	testFunc func(t *testing.T, read *dbservice.ReadHandle, write *dbservice.WriteHandle, testName string)) {

	for _, prepareService := range servicePrepareFuncs {
		func() {
			read, write, serviceType, teardownFunc := prepareService(t, testName)
			defer teardownFunc()

			testName := fmt.Sprintf("%s: %s", serviceType, testName)
			testFunc(t, read, write, testName)
		}()
	}
}

// putForTest stores a single value through the service and fails the test
// on any error.
func putForTest(t *testing.T, write *dbservice.WriteHandle, testName string, key, value []byte) {
	response := <-write.Put(dbservice.PutRequest{Table: testTableName, Key: key, Value: value})
	if response.Err != nil {
		t.Fatalf("%s: Put unexpectedly "+
			"failed: %s", testName, response.Err)
	}
}
