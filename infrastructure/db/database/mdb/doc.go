/*
Package mdb implements the database environment on top of LMDB, a
memory-mapped B-tree store.

The store lives in a data.mdb/lock.mdb file pair inside the configured
directory. The memory map has a fixed size that must be declared up front
and explicitly grown; Environment.Resize applies the configured resize
algorithm when a write no longer fits.

Engine limits leak through the abstraction: keys are limited to 511
bytes, and at most 126 read transactions may be open concurrently. Exceeding either is a programming error in the caller, not
a recoverable condition.
*/
package mdb
