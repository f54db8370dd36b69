package dbservice

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// ErrServiceClosed is the response error for requests submitted after
// every handle was released.
var ErrServiceClosed = errors.New("dbservice: the database service is closed")

// queueSize is the backlog bound of each worker queue. Submission blocks
// once the backlog is full, which backpressures callers instead of
// growing memory without bound.
const queueSize = 256

// Service owns the environment and the worker threads that serve it. It
// is created through New and torn down when the last handle is released;
// callers interact with it only through handles.
type Service struct {
	env    database.Environment
	resize database.ResizeAlgorithm

	readerCount int
	writeCh     chan *writeJob
	readCh      chan func()

	refs         int32
	shutdownMtx  sync.RWMutex
	shuttingDown bool
	workersDone  sync.WaitGroup

	closeErr  error
	closeDone chan struct{}
}

// New starts a database service over the given environment and returns
// its two handles. Exactly one writer worker is spawned, plus
// cfg.ReaderCount reader workers. The service takes ownership of the
// environment and closes it during teardown.
func New(env database.Environment, cfg *database.Config) (*ReadHandle, *WriteHandle, error) {
	cfg, err := cfg.Normalized()
	if err != nil {
		return nil, nil, err
	}

	s := &Service{
		env:         env,
		resize:      cfg.ResizeAlgorithm,
		readerCount: cfg.ReaderCount,
		writeCh:     make(chan *writeJob, queueSize),
		readCh:      make(chan func(), queueSize),
		refs:        2, // the two handles returned below
		closeDone:   make(chan struct{}),
	}

	s.workersDone.Add(1 + s.readerCount)
	spawn("dbservice-writer", func() {
		defer s.workersDone.Done()
		s.writeLoop()
	})
	for i := 0; i < s.readerCount; i++ {
		spawn(fmt.Sprintf("dbservice-reader-%d", i), func() {
			defer s.workersDone.Done()
			s.readLoop()
		})
	}
	log.Infof("Database service started with 1 writer and %d readers over %s",
		s.readerCount, env.Path())

	return &ReadHandle{s: s}, &WriteHandle{s: s}, nil
}

// submitWrite enqueues a job for the writer worker, in submission order.
// It returns false if the service is shutting down.
func (s *Service) submitWrite(job *writeJob) bool {
	s.shutdownMtx.RLock()
	defer s.shutdownMtx.RUnlock()
	if s.shuttingDown {
		return false
	}
	s.writeCh <- job
	return true
}

// submitRead dispatches a job to the reader pool. It returns false if the
// service is shutting down.
func (s *Service) submitRead(job func()) bool {
	s.shutdownMtx.RLock()
	defer s.shutdownMtx.RUnlock()
	if s.shuttingDown {
		return false
	}
	s.readCh <- job
	return true
}

// retain adds a reference for a cloned handle.
func (s *Service) retain() {
	atomic.AddInt32(&s.refs, 1)
}

// release drops one handle reference. The goroutine releasing the last
// reference performs the teardown: it drains the workers, flushes the
// environment and closes it, and only then returns.
func (s *Service) release() {
	if atomic.AddInt32(&s.refs, -1) != 0 {
		return
	}

	s.shutdownMtx.Lock()
	s.shuttingDown = true
	close(s.writeCh)
	close(s.readCh)
	s.shutdownMtx.Unlock()

	s.workersDone.Wait()
	// Close performs the final synchronous flush regardless of the
	// configured sync mode.
	s.closeErr = s.env.Close()
	if s.closeErr != nil {
		log.Errorf("Could not close the environment: %s", s.closeErr)
	}
	log.Infof("Database service over %s stopped", s.env.Path())
	close(s.closeDone)
}

// CloseErr blocks until the service has fully torn down and returns the
// error, if any, from closing the environment.
func (s *Service) CloseErr() error {
	<-s.closeDone
	return s.closeErr
}
