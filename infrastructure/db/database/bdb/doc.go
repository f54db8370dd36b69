/*
Package bdb implements the database environment on top of bbolt, a
copy-on-write B-tree store.

The store is a single data.db file inside the configured directory. The
engine grows its file on its own, so Resize is a successful no-op and the
resize policy never applies. Reads are served from a read-only memory
map; every byte slice bbolt returns is copied before it leaves this
package, both because the map is unwritable and because returned buffers
carry no alignment guarantee.
*/
package bdb
