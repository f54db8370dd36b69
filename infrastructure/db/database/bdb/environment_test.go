package bdb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

func prepareEnvironmentForTest(t *testing.T, testName string, cfg *database.Config) database.Environment {
	env, err := NewEnvironment(cfg)
	if err != nil {
		t.Fatalf("%s: NewEnvironment unexpectedly "+
			"failed: %s", testName, err)
	}
	return env
}

func TestEnvironmentFile(t *testing.T) {
	path := t.TempDir()
	env := prepareEnvironmentForTest(t, "TestEnvironmentFile", database.DefaultConfig(path))
	defer func() {
		err := env.Close()
		if err != nil {
			t.Fatalf("TestEnvironmentFile: Close unexpectedly "+
				"failed: %s", err)
		}
	}()

	// The store is a single file inside the directory
	_, err := os.Stat(filepath.Join(path, dataFileName))
	if err != nil {
		t.Fatalf("TestEnvironmentFile: could not stat "+
			"%s: %s", dataFileName, err)
	}

	if env.Path() != path {
		t.Fatalf("TestEnvironmentFile: Path returned "+
			"wrong path. Want: %s, got: %s", path, env.Path())
	}
}

func TestDynamicGrowth(t *testing.T) {
	env := prepareEnvironmentForTest(t, "TestDynamicGrowth", database.DefaultConfig(t.TempDir()))
	defer func() {
		err := env.Close()
		if err != nil {
			t.Fatalf("TestDynamicGrowth: Close unexpectedly "+
				"failed: %s", err)
		}
	}()

	// The engine grows its file on its own: there is no fixed map, no
	// capacity to report, and Resize is a successful no-op
	if env.FixedMap() {
		t.Fatalf("TestDynamicGrowth: FixedMap unexpectedly " +
			"returned true")
	}
	total, free, err := env.MapInfo()
	if err != nil {
		t.Fatalf("TestDynamicGrowth: MapInfo unexpectedly "+
			"failed: %s", err)
	}
	if total != 0 || free != 0 {
		t.Fatalf("TestDynamicGrowth: MapInfo returned "+
			"nonzero capacity: total %d, free %d", total, free)
	}
	err = env.Resize(1 << 40)
	if err != nil {
		t.Fatalf("TestDynamicGrowth: Resize unexpectedly "+
			"failed: %s", err)
	}
}

func TestReopenDurability(t *testing.T) {
	path := t.TempDir()
	env := prepareEnvironmentForTest(t, "TestReopenDurability", database.DefaultConfig(path))

	key := []byte("key")
	value := []byte("value")
	txn, err := env.BeginRw()
	if err != nil {
		t.Fatalf("TestReopenDurability: BeginRw unexpectedly "+
			"failed: %s", err)
	}
	tbl, err := txn.TableRw("test-table")
	if err != nil {
		t.Fatalf("TestReopenDurability: TableRw unexpectedly "+
			"failed: %s", err)
	}
	err = tbl.Put(key, value)
	if err != nil {
		t.Fatalf("TestReopenDurability: Put unexpectedly "+
			"failed: %s", err)
	}
	err = txn.Commit()
	if err != nil {
		t.Fatalf("TestReopenDurability: Commit unexpectedly "+
			"failed: %s", err)
	}
	err = env.Close()
	if err != nil {
		t.Fatalf("TestReopenDurability: Close unexpectedly "+
			"failed: %s", err)
	}

	// Reopen the same directory and make sure the data survived
	env = prepareEnvironmentForTest(t, "TestReopenDurability", database.DefaultConfig(path))
	defer func() {
		err := env.Close()
		if err != nil {
			t.Fatalf("TestReopenDurability: Close unexpectedly "+
				"failed: %s", err)
		}
	}()
	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("TestReopenDurability: Begin unexpectedly "+
			"failed: %s", err)
	}
	defer readTxn.Discard()
	readTable, err := readTxn.Table("test-table")
	if err != nil {
		t.Fatalf("TestReopenDurability: Table unexpectedly "+
			"failed: %s", err)
	}
	returnedValue, err := readTable.Get(key)
	if err != nil {
		t.Fatalf("TestReopenDurability: Get unexpectedly "+
			"failed: %s", err)
	}
	if !bytes.Equal(returnedValue, value) {
		t.Fatalf("TestReopenDurability: Get returned "+
			"wrong value. Want: %s, got: %s", value, returnedValue)
	}
}

func TestClosedEnvironment(t *testing.T) {
	env := prepareEnvironmentForTest(t, "TestClosedEnvironment", database.DefaultConfig(t.TempDir()))
	err := env.Close()
	if err != nil {
		t.Fatalf("TestClosedEnvironment: Close unexpectedly "+
			"failed: %s", err)
	}

	_, err = env.Begin()
	if !errors.Is(err, database.ErrEnvClosed) {
		t.Fatalf("TestClosedEnvironment: Begin returned "+
			"wrong error: %s", err)
	}
	_, err = env.BeginRw()
	if !errors.Is(err, database.ErrEnvClosed) {
		t.Fatalf("TestClosedEnvironment: BeginRw returned "+
			"wrong error: %s", err)
	}
	err = env.Close()
	if !errors.Is(err, database.ErrEnvClosed) {
		t.Fatalf("TestClosedEnvironment: Close returned "+
			"wrong error: %s", err)
	}
}

func TestSetSafeSyncDuringWrites(t *testing.T) {
	cfg := database.DefaultConfig(t.TempDir())
	cfg.SyncMode = database.SyncModeFastThenSafe
	env := prepareEnvironmentForTest(t, "TestSetSafeSyncDuringWrites", cfg)
	defer func() {
		err := env.Close()
		if err != nil {
			t.Fatalf("TestSetSafeSyncDuringWrites: Close unexpectedly "+
				"failed: %s", err)
		}
	}()

	// Escalate to safe sync while commits are in flight. The escalation
	// must wait out the active transaction instead of changing the sync
	// flags under it, and no write may be lost.
	const writes = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < writes; i++ {
			txn, err := env.BeginRw()
			if err != nil {
				t.Errorf("TestSetSafeSyncDuringWrites: BeginRw unexpectedly "+
					"failed: %s", err)
				return
			}
			tbl, err := txn.TableRw("test-table")
			if err != nil {
				txn.Discard()
				t.Errorf("TestSetSafeSyncDuringWrites: TableRw unexpectedly "+
					"failed: %s", err)
				return
			}
			err = tbl.Put([]byte{byte(i)}, []byte("value"))
			if err != nil {
				txn.Discard()
				t.Errorf("TestSetSafeSyncDuringWrites: Put unexpectedly "+
					"failed: %s", err)
				return
			}
			err = txn.Commit()
			if err != nil {
				t.Errorf("TestSetSafeSyncDuringWrites: Commit unexpectedly "+
					"failed: %s", err)
				return
			}
		}
	}()
	env.SetSafeSync()
	<-done

	readTxn, err := env.Begin()
	if err != nil {
		t.Fatalf("TestSetSafeSyncDuringWrites: Begin unexpectedly "+
			"failed: %s", err)
	}
	defer readTxn.Discard()
	tbl, err := readTxn.Table("test-table")
	if err != nil {
		t.Fatalf("TestSetSafeSyncDuringWrites: Table unexpectedly "+
			"failed: %s", err)
	}
	length, err := tbl.Len()
	if err != nil {
		t.Fatalf("TestSetSafeSyncDuringWrites: Len unexpectedly "+
			"failed: %s", err)
	}
	if length != writes {
		t.Fatalf("TestSetSafeSyncDuringWrites: Len returned "+
			"wrong count. Want: %d, got: %d", writes, length)
	}
}
