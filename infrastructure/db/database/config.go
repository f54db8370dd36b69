package database

import (
	"runtime"

	"github.com/pkg/errors"
)

const (
	// DefaultInitialMapSize is the map size fixed-size-mapping engines
	// start out with: 1 GiB.
	DefaultInitialMapSize = 1 << 30

	// DefaultSyncThreshold is the number of committed bytes that
	// triggers a flush in SyncModeThreshold: 512 MiB.
	DefaultSyncThreshold = 512 << 20

	// defaultMaxTables is the number of named tables an environment can
	// hold. The memory-mapped engine requires this up front.
	defaultMaxTables = 32
)

// Config is the configuration surface of a single environment and the
// service running on top of it. It is filled in by the node's
// configuration layer; this package only validates and applies it.
type Config struct {
	// Path is the directory the store lives in. It is created if it
	// doesn't exist.
	Path string

	// SyncMode selects the durability level of commits.
	SyncMode SyncMode

	// SyncThreshold is the byte threshold for SyncModeThreshold. Zero
	// means DefaultSyncThreshold.
	SyncThreshold uint64

	// ReaderCount is the number of reader workers the database service
	// spawns. Zero means the number of available execution units; other
	// values are clamped to [1, runtime.NumCPU()].
	ReaderCount int

	// InitialMapSize is the starting size of the backing memory map for
	// fixed-size-mapping engines. Zero means DefaultInitialMapSize.
	InitialMapSize uint64

	// ResizeAlgorithm grows the backing map when it fills up. Nil means
	// GreedyIncrement with the default increment.
	ResizeAlgorithm ResizeAlgorithm

	// MaxTables is the maximum number of named tables. Zero picks a
	// default suitable for the node's schemas.
	MaxTables uint
}

// DefaultConfig returns a Config with every field at its default, storing
// at the given path.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:            path,
		SyncMode:        SyncModeSafe,
		SyncThreshold:   DefaultSyncThreshold,
		ReaderCount:     runtime.NumCPU(),
		InitialMapSize:  DefaultInitialMapSize,
		ResizeAlgorithm: GreedyIncrement{},
		MaxTables:       defaultMaxTables,
	}
}

// Normalized returns a copy of the config with zero values replaced by
// defaults and out-of-range values clamped. It errors if the config is
// unusable as given.
func (c *Config) Normalized() (*Config, error) {
	if c.Path == "" {
		return nil, errors.New("database config: path may not be empty")
	}
	normalized := *c
	if normalized.SyncThreshold == 0 {
		normalized.SyncThreshold = DefaultSyncThreshold
	}
	if normalized.ReaderCount <= 0 {
		normalized.ReaderCount = runtime.NumCPU()
	}
	if normalized.ReaderCount > runtime.NumCPU() {
		log.Debugf("Clamping reader count %d to the %d available execution units",
			normalized.ReaderCount, runtime.NumCPU())
		normalized.ReaderCount = runtime.NumCPU()
	}
	if normalized.InitialMapSize == 0 {
		normalized.InitialMapSize = DefaultInitialMapSize
	}
	normalized.InitialMapSize = pageAlign(normalized.InitialMapSize)
	if normalized.ResizeAlgorithm == nil {
		normalized.ResizeAlgorithm = GreedyIncrement{}
	}
	if normalized.MaxTables == 0 {
		normalized.MaxTables = defaultMaxTables
	}
	return &normalized, nil
}
