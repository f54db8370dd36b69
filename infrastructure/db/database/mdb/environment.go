package mdb

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// maxKeySize is LMDB's compile-time default key size ceiling.
const maxKeySize = 511

// maxReaders is the number of reader slots allocated in the lock table.
// LMDB's own default is 126; we keep it, since the service layer never
// holds more concurrent read transactions than it has reader workers.
const maxReaders = 126

// environment implements database.Environment on an LMDB store.
type environment struct {
	env     *lmdb.Env
	tracker *database.SyncTracker
	path    string
	closed  uint32

	// flagsMtx serializes environment-flag changes against write
	// transactions: the engine consults the sync flags during commit,
	// and mdb_env_set_flags is not synchronized against transactions.
	// Write transactions hold the read side from begin to commit or
	// discard.
	flagsMtx sync.RWMutex
}

// NewEnvironment creates or opens an LMDB store in cfg.Path. The
// directory is created if it doesn't exist, resulting in a data.mdb and
// lock.mdb pair inside it.
func NewEnvironment(cfg *database.Config) (database.Environment, error) {
	cfg, err := cfg.Normalized()
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(cfg.Path, 0700)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create database directory %s", cfg.Path)
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, database.NewBackendError(err, "could not allocate an LMDB environment")
	}
	err = env.SetMaxDBs(int(cfg.MaxTables))
	if err != nil {
		return nil, database.NewBackendError(err, "could not set max tables to %d", cfg.MaxTables)
	}
	err = env.SetMaxReaders(maxReaders)
	if err != nil {
		return nil, database.NewBackendError(err, "could not set max readers to %d", maxReaders)
	}
	err = env.SetMapSize(int64(cfg.InitialMapSize))
	if err != nil {
		return nil, database.NewBackendError(err, "could not set initial map size to %d", cfg.InitialMapSize)
	}

	err = env.Open(cfg.Path, openFlags(cfg.SyncMode), 0600)
	if err != nil {
		_ = env.Close()
		if os.IsPermission(errors.Cause(err)) || os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "could not open database at %s", cfg.Path)
		}
		// Anything else is the engine refusing the store: corruption,
		// version mismatch, or an invalid environment.
		return nil, database.NewBackendError(err, "could not open database at %s", cfg.Path)
	}

	log.Infof("Opened LMDB store at %s (map size %d, sync mode %s)",
		cfg.Path, cfg.InitialMapSize, cfg.SyncMode)

	return &environment{
		env:     env,
		tracker: database.NewSyncTracker(cfg.SyncMode, cfg.SyncThreshold),
		path:    cfg.Path,
	}, nil
}

// openFlags maps a sync mode onto LMDB environment flags. Safe mode keeps
// LMDB's native synchronous commit; every other mode disables it and
// relies on the sync tracker (and the flush on Close) for durability.
func openFlags(mode database.SyncMode) uint {
	if mode == database.SyncModeSafe {
		return 0
	}
	return lmdb.NoSync | lmdb.NoMetaSync
}

// Begin begins a read-only transaction.
// This method is part of the database.Environment interface.
func (e *environment) Begin() (database.ReadTxn, error) {
	if e.isClosed() {
		return nil, errors.WithStack(database.ErrEnvClosed)
	}
	txn, err := e.env.BeginTxn(nil, lmdb.Readonly)
	if err != nil {
		if lmdb.IsErrno(err, lmdb.ReadersFull) {
			return nil, database.NewBackendError(err,
				"all %d reader slots are in use", maxReaders)
		}
		return nil, database.NewBackendError(err, "could not begin a read transaction")
	}
	txn.RawRead = true
	return &readTxn{txn: txn}, nil
}

// BeginRw begins a read-write transaction. LMDB serializes writers
// internally, so this blocks while another write transaction is active.
// The transaction is pinned to the calling goroutine's OS thread and must
// be committed or discarded on it.
// This method is part of the database.Environment interface.
func (e *environment) BeginRw() (database.WriteTxn, error) {
	if e.isClosed() {
		return nil, errors.WithStack(database.ErrEnvClosed)
	}
	runtime.LockOSThread()
	e.flagsMtx.RLock()
	txn, err := e.env.BeginTxn(nil, 0)
	if err != nil {
		e.flagsMtx.RUnlock()
		runtime.UnlockOSThread()
		return nil, database.NewBackendError(err, "could not begin a write transaction")
	}
	txn.RawRead = true
	return &writeTxn{readTxn: readTxn{txn: txn}, env: e}, nil
}

// Resize grows the memory map to targetSize bytes. It must not be called
// while this process has an active write transaction; a resize can also
// transiently fail while readers still hold the old mapping, which is why
// the caller retries.
// This method is part of the database.Environment interface.
func (e *environment) Resize(targetSize uint64) error {
	if e.isClosed() {
		return errors.WithStack(database.ErrEnvClosed)
	}
	err := e.env.SetMapSize(int64(targetSize))
	if err != nil {
		return errors.Wrapf(database.ErrResizeNeeded,
			"could not grow the memory map to %d bytes: %s", targetSize, err)
	}
	log.Debugf("Grew the memory map to %d bytes", targetSize)
	return nil
}

// FixedMap returns true: LMDB maps have a fixed, pre-declared size.
// This method is part of the database.Environment interface.
func (e *environment) FixedMap() bool {
	return true
}

// MapInfo returns the total and remaining capacity of the memory map.
// This method is part of the database.Environment interface.
func (e *environment) MapInfo() (total uint64, free uint64, err error) {
	info, err := e.env.Info()
	if err != nil {
		return 0, 0, database.NewBackendError(err, "could not stat the environment")
	}
	stat, err := e.env.Stat()
	if err != nil {
		return 0, 0, database.NewBackendError(err, "could not stat the environment")
	}
	total = uint64(info.MapSize)
	used := uint64(info.LastPNO+1) * uint64(stat.PSize)
	if used > total {
		used = total
	}
	return total, total - used, nil
}

// Sync forces a durable flush of everything committed so far.
// This method is part of the database.Environment interface.
func (e *environment) Sync() error {
	if e.isClosed() {
		return errors.WithStack(database.ErrEnvClosed)
	}
	// force=true is required because non-safe modes open the
	// environment with NoSync.
	err := e.env.Sync(true)
	if err != nil {
		return database.NewBackendError(err, "could not sync the environment")
	}
	return nil
}

// SetSafeSync escalates a FastThenSafe environment to synchronous
// commits.
// This method is part of the database.Environment interface.
func (e *environment) SetSafeSync() {
	if e.tracker.Mode() != database.SyncModeFastThenSafe {
		return
	}
	e.tracker.SetSafe()
	// Wait out any in-flight write transaction before changing the
	// environment flags the engine consults during commit.
	e.flagsMtx.Lock()
	err := e.env.UnsetFlags(lmdb.NoSync | lmdb.NoMetaSync)
	e.flagsMtx.Unlock()
	if err != nil {
		log.Errorf("Could not unset NoSync on the environment: %s", err)
		return
	}
	err = e.Sync()
	if err != nil {
		log.Errorf("Could not sync the environment after escalating to safe mode: %s", err)
		return
	}
	log.Infof("Escalated sync mode to safe")
}

// Path returns the store's directory.
// This method is part of the database.Environment interface.
func (e *environment) Path() string {
	return e.path
}

// Close flushes the store and releases the environment. All transactions
// must already be closed.
// This method is part of the database.Environment interface.
func (e *environment) Close() error {
	if !atomic.CompareAndSwapUint32(&e.closed, 0, 1) {
		return errors.WithStack(database.ErrEnvClosed)
	}
	// Teardown always flushes, regardless of the configured sync mode.
	syncErr := e.env.Sync(true)
	closeErr := e.env.Close()
	log.Infof("Closed LMDB store at %s", e.path)
	if syncErr != nil {
		return database.NewBackendError(syncErr, "could not sync the environment during close")
	}
	if closeErr != nil {
		return database.NewBackendError(closeErr, "could not close the environment")
	}
	return nil
}

func (e *environment) isClosed() bool {
	return atomic.LoadUint32(&e.closed) != 0
}

// afterCommit runs the sync tracker's post-commit policy for a commit
// that wrote bytesWritten payload bytes.
func (e *environment) afterCommit(bytesWritten uint64) error {
	return e.tracker.AfterCommit(bytesWritten, func() error {
		err := e.env.Sync(true)
		if err != nil {
			return database.NewBackendError(err, "could not sync the environment")
		}
		return nil
	})
}
