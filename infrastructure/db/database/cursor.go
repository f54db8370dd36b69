package database

// Cursor iterates over the key/value pairs of a table in key order. A
// cursor starts out unpositioned; calling First, Last, or Seek positions
// it. The sequence a cursor produces is lazy, finite, and bound to the
// lifetime of the transaction that opened it; a closed cursor cannot be
// restarted.
type Cursor interface {
	// First moves the cursor to the smallest key in the table. It
	// returns false if the table is empty.
	First() bool

	// Last moves the cursor to the largest key in the table. It returns
	// false if the table is empty.
	Last() bool

	// Next moves the cursor to the next key. On an unpositioned cursor
	// it moves to the smallest key. It returns false if the cursor is
	// exhausted.
	Next() bool

	// Prev moves the cursor to the previous key. On an unpositioned
	// cursor it moves to the largest key. It returns false if the
	// cursor is exhausted.
	Prev() bool

	// Seek moves the cursor to the smallest key greater than or equal
	// to the given key. It returns false if no such key exists.
	Seek(key []byte) bool

	// Key returns an owned copy of the key the cursor is positioned at.
	// It returns an error if the cursor is closed or unpositioned.
	Key() ([]byte, error)

	// Value returns an owned copy of the value the cursor is positioned
	// at. It returns an error if the cursor is closed or unpositioned.
	Value() ([]byte, error)

	// Close releases the cursor. Using a closed cursor returns
	// ErrCursorClosed.
	Close() error
}
