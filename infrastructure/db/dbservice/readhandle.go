package dbservice

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ReadHandle submits read requests to the service's reader pool. Handles
// may be cloned freely and used from any goroutine; each clone must be
// released exactly once.
type ReadHandle struct {
	s        *Service
	released uint32
}

// Clone returns a new independently-released handle to the same service.
func (h *ReadHandle) Clone() *ReadHandle {
	if atomic.LoadUint32(&h.released) != 0 {
		panic("dbservice: cloned a released ReadHandle")
	}
	h.s.retain()
	return &ReadHandle{s: h.s}
}

// Release drops this handle's reference to the service. Releasing the
// last handle tears the service down; see Service.release.
func (h *ReadHandle) Release() {
	if !atomic.CompareAndSwapUint32(&h.released, 0, 1) {
		return
	}
	h.s.release()
}

// Get submits a GetRequest and returns the channel its response will be
// delivered on.
func (h *ReadHandle) Get(request GetRequest) <-chan GetResponse {
	ch := make(chan GetResponse, 1)
	ok := h.s.submitRead(func() {
		ch <- h.s.readGet(request)
	})
	if !ok {
		ch <- GetResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// HasKeys submits a HasKeysRequest. The keys are split into at most
// reader-pool-size chunks, checked in parallel on the pool, and the
// partial results merged into one response in request order.
//
// Each chunk runs in its own read transaction, because a read
// transaction cannot be shared across workers, so the chunks may observe
// different snapshots. Every snapshot is at least as fresh as the
// request's submission, but keys written concurrently with the request
// may be reported present in one chunk and absent in another. Callers
// that need a single consistent snapshot across all keys should use Get
// through one transaction of their own instead.
func (h *ReadHandle) HasKeys(request HasKeysRequest) <-chan HasKeysResponse {
	ch := make(chan HasKeysResponse, 1)
	if len(request.Keys) == 0 {
		ch <- HasKeysResponse{Found: []bool{}}
		return ch
	}

	chunks := chunkKeys(request.Keys, h.s.readerCount)
	results := make([][]bool, len(chunks))

	service := h.s
	spawn("dbservice-haskeys-merge", func() {
		var group errgroup.Group
		for i, chunk := range chunks {
			i, chunk := i, chunk
			chunkCh := make(chan HasKeysResponse, 1)
			ok := service.submitRead(func() {
				found, err := service.readHasChunk(request.Table, chunk)
				chunkCh <- HasKeysResponse{Found: found, Err: err}
			})
			if !ok {
				chunkCh <- HasKeysResponse{Err: errors.WithStack(ErrServiceClosed)}
			}
			group.Go(func() error {
				response := <-chunkCh
				results[i] = response.Found
				return response.Err
			})
		}
		err := group.Wait()
		if err != nil {
			ch <- HasKeysResponse{Err: err}
			return
		}
		merged := make([]bool, 0, len(request.Keys))
		for _, result := range results {
			merged = append(merged, result...)
		}
		ch <- HasKeysResponse{Found: merged}
	})
	return ch
}

// First submits a FirstRequest and returns its response channel.
func (h *ReadHandle) First(request FirstRequest) <-chan FirstResponse {
	ch := make(chan FirstResponse, 1)
	ok := h.s.submitRead(func() {
		ch <- h.s.readFirst(request)
	})
	if !ok {
		ch <- FirstResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// Last submits a LastRequest and returns its response channel.
func (h *ReadHandle) Last(request LastRequest) <-chan LastResponse {
	ch := make(chan LastResponse, 1)
	ok := h.s.submitRead(func() {
		ch <- h.s.readLast(request)
	})
	if !ok {
		ch <- LastResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// Range submits a RangeRequest and returns its response channel.
func (h *ReadHandle) Range(request RangeRequest) <-chan RangeResponse {
	ch := make(chan RangeResponse, 1)
	ok := h.s.submitRead(func() {
		ch <- h.s.readRange(request)
	})
	if !ok {
		ch <- RangeResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// Len submits a LenRequest and returns its response channel.
func (h *ReadHandle) Len(request LenRequest) <-chan LenResponse {
	ch := make(chan LenResponse, 1)
	ok := h.s.submitRead(func() {
		ch <- h.s.readLen(request)
	})
	if !ok {
		ch <- LenResponse{Err: errors.WithStack(ErrServiceClosed)}
	}
	return ch
}

// chunkKeys splits keys into at most chunkCount contiguous chunks of
// near-equal size.
func chunkKeys(keys [][]byte, chunkCount int) [][][]byte {
	if chunkCount > len(keys) {
		chunkCount = len(keys)
	}
	chunks := make([][][]byte, 0, chunkCount)
	chunkSize := (len(keys) + chunkCount - 1) / chunkCount
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}
