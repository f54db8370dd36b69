package database

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// SyncMode controls whether, and when, a commit blocks on a physical disk
// sync. It is selected at environment configuration time. Regardless of
// mode, closing an environment always performs a full synchronous flush.
type SyncMode uint8

const (
	// SyncModeSafe syncs to disk on every commit. The commit does not
	// return until the data is durable. This is the default.
	SyncModeSafe SyncMode = iota

	// SyncModeFast never explicitly syncs, relying on the OS and the
	// engine's background flushing. Data committed shortly before a
	// crash may be lost.
	SyncModeFast

	// SyncModeAsync schedules a flush off the commit's critical path
	// after every commit.
	SyncModeAsync

	// SyncModeThreshold syncs once a configured number of bytes have
	// been committed since the previous sync.
	SyncModeThreshold

	// SyncModeFastThenSafe behaves like SyncModeFast until the
	// environment's SetSafeSync is called, typically once the node has
	// caught up to the chain tip, and like SyncModeSafe afterwards.
	SyncModeFastThenSafe
)

var syncModeStrs = [...]string{"safe", "fast", "async", "threshold", "fast-then-safe"}

// String returns the configuration name of the sync mode.
func (m SyncMode) String() string {
	if int(m) >= len(syncModeStrs) {
		return "unknown"
	}
	return syncModeStrs[m]
}

// SyncModeFromString parses a configuration string into a SyncMode.
func SyncModeFromString(s string) (SyncMode, error) {
	for i, str := range syncModeStrs {
		if s == str {
			return SyncMode(i), nil
		}
	}
	return 0, errors.Errorf("unknown sync mode '%s'", s)
}

// SyncTracker implements the commit-side bookkeeping shared by all
// engines: counting bytes committed since the last flush and deciding,
// per the configured sync mode, whether a commit must flush inline,
// in the background, or not at all.
type SyncTracker struct {
	mode      SyncMode
	threshold uint64

	unsynced uint64 // bytes committed since the last sync
	safe     uint32 // set once SetSafe escalates FastThenSafe

	asyncMtx sync.Mutex // serializes background flushes
}

// NewSyncTracker returns a tracker for the given mode. threshold is only
// used by SyncModeThreshold.
func NewSyncTracker(mode SyncMode, threshold uint64) *SyncTracker {
	return &SyncTracker{mode: mode, threshold: threshold}
}

// Mode returns the configured sync mode.
func (t *SyncTracker) Mode() SyncMode {
	return t.mode
}

// IsSafe reports whether commits currently require an inline durable
// flush.
func (t *SyncTracker) IsSafe() bool {
	if t.mode == SyncModeSafe {
		return true
	}
	return t.mode == SyncModeFastThenSafe && atomic.LoadUint32(&t.safe) != 0
}

// SetSafe escalates a FastThenSafe tracker to safe behavior. It has no
// effect in any other mode.
func (t *SyncTracker) SetSafe() {
	if t.mode == SyncModeFastThenSafe {
		atomic.StoreUint32(&t.safe, 1)
	}
}

// AfterCommit is called by engines after every successful commit of
// bytesWritten payload bytes. syncFn must durably flush the store. The
// inline flush required by safe modes is expected to have been performed
// by the engine as part of the commit itself; AfterCommit only drives the
// threshold and async behaviors.
func (t *SyncTracker) AfterCommit(bytesWritten uint64, syncFn func() error) error {
	switch t.mode {
	case SyncModeThreshold:
		unsynced := atomic.AddUint64(&t.unsynced, bytesWritten)
		if unsynced < t.threshold {
			return nil
		}
		atomic.StoreUint64(&t.unsynced, 0)
		return syncFn()
	case SyncModeAsync:
		spawn("SyncTracker.AfterCommit-flush", func() {
			t.asyncMtx.Lock()
			defer t.asyncMtx.Unlock()
			err := syncFn()
			if err != nil {
				log.Errorf("Background flush failed: %s", err)
			}
		})
	}
	return nil
}
