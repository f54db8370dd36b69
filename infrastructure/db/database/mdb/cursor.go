package mdb

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// cursor iterates an LMDB named database in key order. The keys and
// values it holds between moves are raw references into the memory map;
// they are copied when handed out.
type cursor struct {
	cur       *lmdb.Cursor
	tableName string

	currentKey   []byte
	currentValue []byte
	positioned   bool
	closed       bool
}

// First moves the cursor to the smallest key.
// This method is part of the database.Cursor interface.
func (c *cursor) First() bool {
	return c.move(nil, lmdb.First)
}

// Last moves the cursor to the largest key.
// This method is part of the database.Cursor interface.
func (c *cursor) Last() bool {
	return c.move(nil, lmdb.Last)
}

// Next moves the cursor to the next key.
// This method is part of the database.Cursor interface.
func (c *cursor) Next() bool {
	return c.move(nil, lmdb.Next)
}

// Prev moves the cursor to the previous key.
// This method is part of the database.Cursor interface.
func (c *cursor) Prev() bool {
	return c.move(nil, lmdb.Prev)
}

// Seek moves the cursor to the smallest key at or after the given key.
// This method is part of the database.Cursor interface.
func (c *cursor) Seek(key []byte) bool {
	return c.move(key, lmdb.SetRange)
}

func (c *cursor) move(setKey []byte, op uint) bool {
	if c.closed {
		return false
	}
	key, value, err := c.cur.Get(setKey, nil, op)
	if err != nil {
		// Exhaustion and a positioning failure look the same to the
		// iteration protocol.
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
	c.cur.Close()
	return nil
}
