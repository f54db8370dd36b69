package dbservice

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// WriteHandle submits write requests to the service's single writer
// worker. Unlike ReadHandle it cannot be cloned: the node has exactly one
// writing component per store. The handle may be used from any goroutine;
// requests are linearized by the worker in submission order.
type WriteHandle struct {
	s        *Service
	released uint32
}

// Release drops this handle's reference to the service. Releasing the
// last handle tears the service down; see Service.release.
func (h *WriteHandle) Release() {
	if !atomic.CompareAndSwapUint32(&h.released, 0, 1) {
		return
	}
	h.s.release()
}

// Put submits a PutRequest and returns the channel its response will be
// delivered on once the write transaction has committed.
func (h *WriteHandle) Put(request PutRequest) <-chan PutResponse {
	ch := make(chan PutResponse, 1)
	job := &writeJob{
		estimatedBytes: request.estimatedBytes(),
		apply: func(txn database.WriteTxn) error {
			tbl, err := txn.TableRw(request.Table)
			if err != nil {
				return err
			}
			return tbl.Put(request.Key, request.Value)
		},
		respond: func(err error) { ch <- PutResponse{Err: err} },
	}
	if !h.s.submitWrite(job) {
		ch <- PutResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// Delete submits a DeleteRequest and returns its response channel.
func (h *WriteHandle) Delete(request DeleteRequest) <-chan DeleteResponse {
	ch := make(chan DeleteResponse, 1)
	job := &writeJob{
		estimatedBytes: request.estimatedBytes(),
		apply: func(txn database.WriteTxn) error {
			tbl, err := txn.TableRw(request.Table)
			if err != nil {
				return err
			}
			return tbl.Delete(request.Key)
		},
		respond: func(err error) { ch <- DeleteResponse{Err: err} },
	}
	if !h.s.submitWrite(job) {
		ch <- DeleteResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// PutBatch submits a PutBatchRequest. All of the batch's operations run
// inside one write transaction and commit or fail together.
func (h *WriteHandle) PutBatch(request PutBatchRequest) <-chan PutBatchResponse {
	ch := make(chan PutBatchResponse, 1)
	job := &writeJob{
		estimatedBytes: request.estimatedBytes(),
		apply: func(txn database.WriteTxn) error {
			for _, op := range request.Ops {
				tbl, err := txn.TableRw(op.Table)
				if err != nil {
					return err
				}
				if op.Delete {
					err = tbl.Delete(op.Key)
				} else {
					err = tbl.Put(op.Key, op.Value)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
		respond: func(err error) { ch <- PutBatchResponse{Err: err} },
	}
	if !h.s.submitWrite(job) {
		ch <- PutBatchResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// Flush submits a FlushRequest. It is ordered behind every write request
// submitted before it, so once its response arrives, all of them are
// durable.
func (h *WriteHandle) Flush(request FlushRequest) <-chan FlushResponse {
	ch := make(chan FlushResponse, 1)
	job := &writeJob{
		sync:    true,
		respond: func(err error) { ch <- FlushResponse{Err: err} },
	}
	if !h.s.submitWrite(job) {
		ch <- FlushResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// SetSafeSync escalates a FastThenSafe environment to safe sync
// behavior, typically once the node considers itself caught up.
func (h *WriteHandle) SetSafeSync() {
	h.s.env.SetSafeSync()
}
