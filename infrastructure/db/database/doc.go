/*
Package database provides a transactional key-value store for calicod.

Overview

This package defines the backend-agnostic contract implemented by the
storage engines under it: an Environment owning an on-disk store, read-only
and read-write transactions with snapshot isolation, and named tables of
unique keys. Two engines implement the contract: mdb, a memory-mapped
B-tree store that requires explicit map growth, and bdb, a copy-on-write
B-tree store that grows on its own.

Transactions

Read transactions observe an immutable snapshot of the store taken when the
transaction began and never block the writer. Write transactions observe
the latest committed state; at most one is active per environment at any
time. A transaction that isn't explicitly committed must be discarded, at
which point none of its effects are visible to any future transaction.

Values

All values returned from the store are owned copies. Engines may hand out
references into memory-mapped pages with no alignment guarantees, so the
typed codec layer always copy-decodes into freshly allocated storage.
*/
package database
