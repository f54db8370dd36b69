package dbservice

// The request/response surface of the service. The set of requests is
// closed, and every request is deterministically paired with the response
// type of the same name. Submitting a request returns a 1-buffered
// channel that receives exactly one response, even on failure: the
// service never drops a request silently.

// GetRequest asks for the value stored under a single key.
type GetRequest struct {
	Table string
	Key   []byte
}

// GetResponse answers a GetRequest. Found is false if the key does not
// exist; a missing key is not an error.
type GetResponse struct {
	Value []byte
	Found bool
	Err   error
}

// HasKeysRequest asks which of the given keys exist. Large requests are
// split across the reader pool and the partial results merged.
type HasKeysRequest struct {
	Table string
	Keys  [][]byte
}

// HasKeysResponse answers a HasKeysRequest. Found has one entry per
// requested key, in request order.
type HasKeysResponse struct {
	Found []bool
	Err   error
}

// FirstRequest asks for the entry with the smallest key in a table.
type FirstRequest struct {
	Table string
}

// FirstResponse answers a FirstRequest.
type FirstResponse struct {
	Key   []byte
	Value []byte
	Found bool
	Err   error
}

// LastRequest asks for the entry with the largest key in a table.
type LastRequest struct {
	Table string
}

// LastResponse answers a LastRequest.
type LastResponse struct {
	Key   []byte
	Value []byte
	Found bool
	Err   error
}

// RangeRequest asks for up to Limit entries starting at Start (or at the
// table's first or last entry when Start is nil), walking forward or, if
// Reverse is set, backward. Cursors cannot cross worker threads, so the
// scan is materialized into the response.
type RangeRequest struct {
	Table   string
	Start   []byte
	Reverse bool
	Limit   int
}

// Entry is a single key/value pair in a RangeResponse.
type Entry struct {
	Key   []byte
	Value []byte
}

// RangeResponse answers a RangeRequest.
type RangeResponse struct {
	Entries []Entry
	Err     error
}

// LenRequest asks for the number of entries in a table.
type LenRequest struct {
	Table string
}

// LenResponse answers a LenRequest.
type LenResponse struct {
	Count uint64
	Err   error
}

// PutRequest stores a value under a key, overwriting any previous value.
type PutRequest struct {
	Table string
	Key   []byte
	Value []byte
}

// PutResponse answers a PutRequest.
type PutResponse struct {
	Err error
}

// DeleteRequest deletes the value under a key. Deleting a missing key
// succeeds.
type DeleteRequest struct {
	Table string
	Key   []byte
}

// DeleteResponse answers a DeleteRequest.
type DeleteResponse struct {
	Err error
}

// WriteOp is a single operation inside a PutBatchRequest. Delete set
// means the key is deleted and Value is ignored.
type WriteOp struct {
	Table  string
	Key    []byte
	Value  []byte
	Delete bool
}

// PutBatchRequest applies all of its operations inside one write
// transaction: either every operation commits or none do.
type PutBatchRequest struct {
	Ops []WriteOp
}

// PutBatchResponse answers a PutBatchRequest.
type PutBatchResponse struct {
	Err error
}

// FlushRequest forces a durable sync of everything committed before it.
// It is ordered behind all previously submitted write requests.
type FlushRequest struct{}

// FlushResponse answers a FlushRequest.
type FlushResponse struct {
	Err error
}

// estimatedBytes returns the payload size of a write request, used by
// the resize policy to grow the map before the transaction begins.
func (r *PutRequest) estimatedBytes() uint64 {
	return uint64(len(r.Key) + len(r.Value))
}

func (r *DeleteRequest) estimatedBytes() uint64 {
	return uint64(len(r.Key))
}

func (r *PutBatchRequest) estimatedBytes() uint64 {
	var total uint64
	for _, op := range r.Ops {
		total += uint64(len(op.Key) + len(op.Value))
	}
	return total
}
