package database

// Environment is an open handle to an on-disk store. It owns all backend
// resources and is the sole issuer of transactions against the store.
// An environment is exclusively owned by whichever component opened it
// and must be closed exactly once; closing flushes all committed data
// regardless of the configured sync mode.
type Environment interface {
	// Begin begins a new read-only transaction. The transaction observes
	// a snapshot of the store taken at this moment.
	Begin() (ReadTxn, error)

	// BeginRw begins a new read-write transaction. At most one read-write
	// transaction may be active per environment; a second call blocks
	// until the first transaction is committed or discarded.
	BeginRw() (WriteTxn, error)

	// Resize grows the backing memory map to at least targetSize bytes.
	// Engines that grow dynamically return nil without doing anything.
	// Resizing may transiently fail while readers hold the old map.
	Resize(targetSize uint64) error

	// FixedMap reports whether the engine is backed by a fixed-size
	// memory map that requires explicit growth via Resize.
	FixedMap() bool

	// MapInfo returns the total and remaining byte capacity of the
	// backing map. Engines that grow dynamically report zeroes.
	MapInfo() (total uint64, free uint64, err error)

	// Sync forces all committed data to durable storage, regardless of
	// the configured sync mode.
	Sync() error

	// SetSafeSync escalates a FastThenSafe environment to Safe sync
	// behavior. It has no effect in any other sync mode.
	SetSafeSync()

	// Path returns the directory the store lives in.
	Path() string

	// Close syncs the store to disk and releases all backend resources.
	// All transactions must be closed before calling Close.
	Close() error
}

// ReadTxn is a read-only transaction. It observes an immutable snapshot of
// the environment established at creation and never blocks the writer.
type ReadTxn interface {
	// Table opens the named table for reading. It returns
	// ErrTableNotFound if the table was never created.
	Table(name string) (ReadTable, error)

	// Discard releases the transaction. It is idempotent, and for write
	// transactions it rolls back unless the transaction was already
	// committed. Every transaction must eventually be discarded.
	Discard()
}

// WriteTxn is a read-write transaction. It observes the latest committed
// state and excludes concurrent writers. Mutations are invisible to other
// transactions until Commit. Commit and Rollback are terminal: a committed
// or rolled-back transaction may not be used again.
type WriteTxn interface {
	ReadTxn

	// TableRw opens the named table for reading and writing, creating it
	// if it does not exist yet.
	TableRw(name string) (WriteTable, error)

	// Commit atomically applies all of the transaction's mutations to
	// the store.
	Commit() error

	// Rollback throws away all of the transaction's mutations.
	Rollback() error
}

// ReadTable is a read-only handle to a named table inside a transaction.
// Handles are bound to the transaction that opened them and must not be
// used after the transaction is closed. All returned byte slices are owned
// copies, never references into backend memory.
type ReadTable interface {
	// Get gets the value for the given key. It returns ErrNotFound if
	// the key does not exist.
	Get(key []byte) ([]byte, error)

	// Has returns true if the table contains the given key.
	Has(key []byte) (bool, error)

	// First returns the key/value pair with the lexicographically
	// smallest key, or found=false if the table is empty.
	First() (key, value []byte, found bool, err error)

	// Last returns the key/value pair with the lexicographically
	// largest key, or found=false if the table is empty.
	Last() (key, value []byte, found bool, err error)

	// Len returns the number of key/value pairs in the table.
	Len() (uint64, error)

	// Cursor begins a new cursor over the table. The cursor is bound to
	// the transaction's lifetime and must be closed before it.
	Cursor() (Cursor, error)
}

// WriteTable is a read-write handle to a named table inside a write
// transaction. Tables are strict one-key-to-one-value maps: storing under
// an existing key overwrites the previous value, and callers that need
// multiple values per logical key must encode a discriminator into the
// stored key.
type WriteTable interface {
	ReadTable

	// Put sets the value for the given key, overwriting any previous
	// value. It returns ErrKeyTooLarge or ErrValueTooLarge if the
	// engine's size ceiling is exceeded, which indicates a schema
	// defect in the caller.
	Put(key, value []byte) error

	// Delete deletes the value for the given key. It does not return an
	// error if the key doesn't exist.
	Delete(key []byte) error
}
