package dbservice

import (
	"github.com/caliconet/calicod/infrastructure/db/database"
)

// writeJob is the writer worker's unit of work. Exactly one respond call
// is made per job. sync jobs carry no transaction body and flush the
// environment instead.
type writeJob struct {
	estimatedBytes uint64
	apply          func(txn database.WriteTxn) error
	sync           bool
	respond        func(err error)
}

// writeLoop is the single writer worker. It processes jobs strictly in
// arrival order, one write transaction per job, which gives writes their
// total order. A failed job reports its error to its caller only; jobs
// queued behind it are unaffected.
func (s *Service) writeLoop() {
	for job := range s.writeCh {
		if job.sync {
			job.respond(s.env.Sync())
			continue
		}
		job.respond(s.runWrite(job))
	}
}

// runWrite executes one write job under the resize policy: capacity is
// ensured up front, and a transaction that still hits a full map grows
// the map and retries, at most database.ResizeRetries times, before
// ErrResizeNeeded surfaces to the caller.
func (s *Service) runWrite(job *writeJob) error {
	err := s.ensureCapacity(job.estimatedBytes)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		err = s.tryWrite(job)
		if err == nil || !database.IsResizeNeededError(err) {
			return err
		}
		if attempt >= database.ResizeRetries {
			log.Warnf("Giving up on a write of %d bytes after %d resize attempts",
				job.estimatedBytes, attempt)
			return err
		}
		growErr := s.growMap()
		if growErr != nil {
			// Readers holding the old mapping can transiently block a
			// remap; burning a retry on it is the point of the budget.
			log.Debugf("Resize attempt %d failed: %s", attempt+1, growErr)
		}
	}
}

// tryWrite runs one write transaction for the job. The transaction is
// discarded on any failure, so no partial effects are ever visible.
func (s *Service) tryWrite(job *writeJob) error {
	txn, err := s.env.BeginRw()
	if err != nil {
		return err
	}
	defer txn.Discard()
	err = job.apply(txn)
	if err != nil {
		return err
	}
	return txn.Commit()
}

// ensureCapacity grows the map before a transaction begins if the
// pending payload would not fit in the remaining capacity. A payload that
// exactly fits triggers no resize. Engines without a fixed map always
// have capacity.
func (s *Service) ensureCapacity(estimatedBytes uint64) error {
	if !s.env.FixedMap() {
		return nil
	}
	_, free, err := s.env.MapInfo()
	if err != nil {
		return err
	}
	if free >= estimatedBytes {
		return nil
	}
	return s.growMap()
}

// growMap grows the environment's map once, per the configured resize
// algorithm.
func (s *Service) growMap() error {
	total, _, err := s.env.MapInfo()
	if err != nil {
		return err
	}
	return s.env.Resize(s.resize.Grow(total))
}
