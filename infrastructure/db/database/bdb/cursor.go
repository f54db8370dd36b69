package bdb

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// cursor iterates a bbolt bucket in key order. bbolt cursors have no
// close operation of their own; Close only seals ours against reuse so
// the non-restartable contract holds across engines.
type cursor struct {
	cur       *bolt.Cursor
	tableName string

	currentKey   []byte
	currentValue []byte
	started      bool
	positioned   bool
	closed       bool
}

// First moves the cursor to the smallest key.
// This method is part of the database.Cursor interface.
func (c *cursor) First() bool {
	if c.closed {
		return false
	}
	c.started = true
	return c.update(c.cur.First())
}

// Last moves the cursor to the largest key.
// This method is part of the database.Cursor interface.
func (c *cursor) Last() bool {
	if c.closed {
		return false
	}
	c.started = true
	return c.update(c.cur.Last())
}

// Next moves the cursor to the next key.
// This method is part of the database.Cursor interface.
func (c *cursor) Next() bool {
	if c.closed {
		return false
	}
	if !c.started {
		// Advancing an unpositioned cursor starts the iteration, which
		// is what LMDB does natively.
		return c.First()
	}
	return c.update(c.cur.Next())
}

// Prev moves the cursor to the previous key.
// This method is part of the database.Cursor interface.
func (c *cursor) Prev() bool {
	if c.closed {
		return false
	}
	if !c.started {
		return c.Last()
	}
	return c.update(c.cur.Prev())
}

// Seek moves the cursor to the smallest key at or after the given key.
// This method is part of the database.Cursor interface.
func (c *cursor) Seek(key []byte) bool {
	if c.closed {
		return false
	}
	c.started = true
	return c.update(c.cur.Seek(key))
}

func (c *cursor) update(key, value []byte) bool {
	if key == nil {
		c.positioned = false
		return false
	}
	c.currentKey = key
	c.currentValue = value
	c.positioned = true
	return true
}

// Key returns an owned copy of the key the cursor is positioned at.
// This method is part of the database.Cursor interface.
func (c *cursor) Key() ([]byte, error) {
	if c.closed || !c.positioned {
		return nil, errors.Wrapf(database.ErrCursorClosed,
			"cursor over table '%s'", c.tableName)
	}
	return copyBytes(c.currentKey), nil
}

// Value returns an owned copy of the value the cursor is positioned at.
// This method is part of the database.Cursor interface.
func (c *cursor) Value() ([]byte, error) {
	if c.closed || !c.positioned {
		return nil, errors.Wrapf(database.ErrCursorClosed,
			"cursor over table '%s'", c.tableName)
	}
	return copyBytes(c.currentValue), nil
}

// Close releases the cursor.
// This method is part of the database.Cursor interface.
func (c *cursor) Close() error {
	if c.closed {
		return errors.Wrapf(database.ErrCursorClosed,
			"cannot close an already closed cursor over table '%s'", c.tableName)
	}
	c.closed = true
	c.positioned = false
	return nil
}
