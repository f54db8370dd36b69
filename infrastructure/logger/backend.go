package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
)

const (
	defaultThresholdKB = 10 * 1000 // 10 MB logs by default.
	defaultMaxRolls    = 8         // keep 8 last logs by default.
)

// Backend is a logging backend. Subsystems created from the backend write
// to the backend's writers. A single goroutine owns all writes, so output
// from concurrent subsystems is never interleaved mid-line.
type Backend struct {
	mtx       sync.Mutex
	writers   []logWriter
	writeChan chan logEntry
	isRunning uint32
	closeWait sync.Mutex // held by the write goroutine while it's draining
}

type logEntry struct {
	line  []byte
	level Level
}

type logWriter struct {
	io.WriteCloser
	level Level
}

// NewBackend creates a new logger backend.
func NewBackend() *Backend {
	return &Backend{writeChan: make(chan logEntry, 1024)}
}

// AddLogWriter adds an io.WriteCloser which the backend will write into for
// every message at or above the given level.
func (b *Backend) AddLogWriter(w io.WriteCloser, level Level) error {
	if b.IsRunning() {
		return errors.New("cannot add a writer to a running logger backend")
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.writers = append(b.writers, logWriter{WriteCloser: w, level: level})
	return nil
}

// AddLogFile adds a rotated log file which the backend will write into for
// every message at or above the given level. The file and its directory are
// created if they don't exist.
func (b *Backend) AddLogFile(logFile string, level Level) error {
	if b.IsRunning() {
		return errors.New("cannot add a log file to a running logger backend")
	}
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		err := os.MkdirAll(logDir, 0700)
		if err != nil {
			return errors.Wrapf(err, "failed to create log directory %s", logDir)
		}
	}
	r, err := rotator.New(logFile, defaultThresholdKB, false, defaultMaxRolls)
	if err != nil {
		return errors.Wrapf(err, "failed to create file rotator for %s", logFile)
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.writers = append(b.writers, logWriter{WriteCloser: r, level: level})
	return nil
}

// Run launches the backend write goroutine. May only be called once.
func (b *Backend) Run() error {
	if !atomic.CompareAndSwapUint32(&b.isRunning, 0, 1) {
		return errors.New("logger backend is already running")
	}
	go b.runBlocking()
	return nil
}

func (b *Backend) runBlocking() {
	b.closeWait.Lock()
	defer b.closeWait.Unlock()

	for entry := range b.writeChan {
		for _, writer := range b.writers {
			if entry.level >= writer.level {
				_, _ = writer.Write(entry.line)
			}
		}
	}
}

// IsRunning returns true between a call to Run and a call to Close.
func (b *Backend) IsRunning() bool {
	return atomic.LoadUint32(&b.isRunning) != 0
}

// Close stops the backend, waits for all buffered entries to be written
// and closes all writers.
func (b *Backend) Close() {
	if !atomic.CompareAndSwapUint32(&b.isRunning, 1, 0) {
		return
	}
	close(b.writeChan)
	// Wait for the write goroutine to drain.
	b.closeWait.Lock()
	defer b.closeWait.Unlock()
	for _, writer := range b.writers {
		_ = writer.Close()
	}
}

func (b *Backend) write(level Level, line []byte) {
	if !b.IsRunning() {
		return
	}
	b.writeChan <- logEntry{line: line, level: level}
}
