/*
Package dbservice exposes a database environment to the rest of the node
as an asynchronous request/response service, so callers never manage
transactions or worker threads themselves.

The service runs exactly one writer worker and a pool of reader workers.
Every write request is executed in its own write transaction, strictly in
arrival order, which linearizes all writes. Read requests are dispatched
to the reader pool in no particular order; each runs in its own read
transaction and therefore observes a consistent snapshot no older than
its submission time. Batched read requests may be split across the pool
and merged before responding; the pieces then run in separate read
transactions, one per worker, and may observe different snapshots of
writes committed while the batch is in flight.

Callers hold two kinds of handles: a cloneable ReadHandle and a
single-owner WriteHandle. The handles reference-count the service; when
the last one is released the workers drain, the environment is flushed
with a full synchronous sync and closed. Submitting a request returns a
buffered response channel; abandoning the channel does not cancel work
already dispatched to a worker, it only discards the response.
*/
package dbservice
