package bdb

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// dataFileName is the single file the store lives in.
const dataFileName = "data.db"

// environment implements database.Environment on a bbolt store.
type environment struct {
	db      *bolt.DB
	tracker *database.SyncTracker
	path    string
	closed  uint32

	// flagsMtx serializes sync-flag changes against write transactions:
	// the engine reads NoSync inside every commit, so flipping it while
	// a transaction is open is a race. Write transactions hold the read
	// side from begin to commit or discard.
	flagsMtx sync.RWMutex
}

// NewEnvironment creates or opens a bbolt store under cfg.Path. The
// directory is created if it doesn't exist.
func NewEnvironment(cfg *database.Config) (database.Environment, error) {
	cfg, err := cfg.Normalized()
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(cfg.Path, 0700)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create database directory %s", cfg.Path)
	}

	dataFile := filepath.Join(cfg.Path, dataFileName)
	db, err := bolt.Open(dataFile, 0600, &bolt.Options{
		// Pre-sizing the map to the configured initial size avoids
		// remap churn while the store is small.
		InitialMmapSize: int(cfg.InitialMapSize),
	})
	if err != nil {
		if os.IsPermission(errors.Cause(err)) || os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "could not open database at %s", dataFile)
		}
		return nil, database.NewBackendError(err, "could not open database at %s", dataFile)
	}
	// Safe is bbolt's native behavior: fsync on every commit. All other
	// modes disable it and leave flushing to the sync tracker and Close.
	db.NoSync = cfg.SyncMode != database.SyncModeSafe

	log.Infof("Opened bbolt store at %s (sync mode %s)", dataFile, cfg.SyncMode)

	return &environment{
		db:      db,
		tracker: database.NewSyncTracker(cfg.SyncMode, cfg.SyncThreshold),
		path:    cfg.Path,
	}, nil
}

// Begin begins a read-only transaction.
// This method is part of the database.Environment interface.
func (e *environment) Begin() (database.ReadTxn, error) {
	if e.isClosed() {
		return nil, errors.WithStack(database.ErrEnvClosed)
	}
	tx, err := e.db.Begin(false)
	if err != nil {
		return nil, database.NewBackendError(err, "could not begin a read transaction")
	}
	return &readTxn{tx: tx}, nil
}

// BeginRw begins a read-write transaction, blocking while another one is
// active.
// This method is part of the database.Environment interface.
func (e *environment) BeginRw() (database.WriteTxn, error) {
	if e.isClosed() {
		return nil, errors.WithStack(database.ErrEnvClosed)
	}
	e.flagsMtx.RLock()
	tx, err := e.db.Begin(true)
	if err != nil {
		e.flagsMtx.RUnlock()
		return nil, database.NewBackendError(err, "could not begin a write transaction")
	}
	return &writeTxn{readTxn: readTxn{tx: tx}, env: e}, nil
}

// Resize is a successful no-op: the engine grows its file dynamically.
// This method is part of the database.Environment interface.
func (e *environment) Resize(targetSize uint64) error {
	if e.isClosed() {
		return errors.WithStack(database.ErrEnvClosed)
	}
	return nil
}

// FixedMap returns false: the engine grows dynamically.
// This method is part of the database.Environment interface.
func (e *environment) FixedMap() bool {
	return false
}

// MapInfo reports zeroes: there is no fixed capacity to exhaust.
// This method is part of the database.Environment interface.
func (e *environment) MapInfo() (total uint64, free uint64, err error) {
	return 0, 0, nil
}

// Sync forces a durable flush of everything committed so far.
// This method is part of the database.Environment interface.
func (e *environment) Sync() error {
	if e.isClosed() {
		return errors.WithStack(database.ErrEnvClosed)
	}
	err := e.db.Sync()
	if err != nil {
		return database.NewBackendError(err, "could not sync the database file")
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
	// Wait out any in-flight write transaction before flipping the flag
	// the engine reads during commit.
	e.flagsMtx.Lock()
	e.db.NoSync = false
	e.flagsMtx.Unlock()
	err := e.Sync()
	if err != nil {
		log.Errorf("Could not sync the database after escalating to safe mode: %s", err)
		return
	}
	log.Infof("Escalated sync mode to safe")
}

// Path returns the store's directory.
// This method is part of the database.Environment interface.
func (e *environment) Path() string {
	return e.path
}

// Close flushes the store and releases it. All transactions must already
// be closed.
// This method is part of the database.Environment interface.
func (e *environment) Close() error {
	if !atomic.CompareAndSwapUint32(&e.closed, 0, 1) {
		return errors.WithStack(database.ErrEnvClosed)
	}
	// Teardown always flushes, regardless of the configured sync mode.
	syncErr := e.db.Sync()
	closeErr := e.db.Close()
	log.Infof("Closed bbolt store at %s", e.path)
	if syncErr != nil {
		return database.NewBackendError(syncErr, "could not sync the database file during close")
	}
	if closeErr != nil {
		return database.NewBackendError(closeErr, "could not close the database")
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
		err := e.db.Sync()
		if err != nil {
			return database.NewBackendError(err, "could not sync the database file")
		}
		return nil
	})
}
