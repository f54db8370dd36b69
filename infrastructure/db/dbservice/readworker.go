package dbservice

import (
	"bytes"

	"github.com/caliconet/calicod/infrastructure/db/database"
)

// readLoop is one reader worker. Jobs carry their own response plumbing;
// the worker just runs them.
func (s *Service) readLoop() {
	for job := range s.readCh {
		job()
	}
}

// withReadTxn runs fn inside a fresh read transaction, which observes a
// snapshot no older than the moment this call was dispatched.
func (s *Service) withReadTxn(fn func(txn database.ReadTxn) error) error {
	txn, err := s.env.Begin()
	if err != nil {
		return err
	}
	defer txn.Discard()
	return fn(txn)
}

func (s *Service) readGet(request GetRequest) GetResponse {
	var response GetResponse
	response.Err = s.withReadTxn(func(txn database.ReadTxn) error {
		tbl, err := txn.Table(request.Table)
		if err != nil {
			return err
		}
		value, err := tbl.Get(request.Key)
		if err != nil {
			if database.IsNotFoundError(err) {
				return nil
			}
			return err
		}
		response.Value = value
		response.Found = true
		return nil
	})
	return response
}

// readHasChunk answers one chunk of a HasKeysRequest. Each chunk runs in
// its own read transaction on its own reader worker, so sibling chunks
// of the same request may observe different snapshots.
func (s *Service) readHasChunk(tableName string, keys [][]byte) ([]bool, error) {
	found := make([]bool, len(keys))
	err := s.withReadTxn(func(txn database.ReadTxn) error {
		tbl, err := txn.Table(tableName)
		if err != nil {
			return err
		}
		for i, key := range keys {
			found[i], err = tbl.Has(key)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *Service) readFirst(request FirstRequest) FirstResponse {
	var response FirstResponse
	response.Err = s.withReadTxn(func(txn database.ReadTxn) error {
		tbl, err := txn.Table(request.Table)
		if err != nil {
			return err
		}
		response.Key, response.Value, response.Found, err = tbl.First()
		return err
	})
	return response
}

func (s *Service) readLast(request LastRequest) LastResponse {
	var response LastResponse
	response.Err = s.withReadTxn(func(txn database.ReadTxn) error {
		tbl, err := txn.Table(request.Table)
		if err != nil {
			return err
		}
		response.Key, response.Value, response.Found, err = tbl.Last()
		return err
	})
	return response
}

func (s *Service) readLen(request LenRequest) LenResponse {
	var response LenResponse
	response.Err = s.withReadTxn(func(txn database.ReadTxn) error {
		tbl, err := txn.Table(request.Table)
		if err != nil {
			return err
		}
		response.Count, err = tbl.Len()
		return err
	})
	return response
}

func (s *Service) readRange(request RangeRequest) RangeResponse {
	var response RangeResponse
	response.Err = s.withReadTxn(func(txn database.ReadTxn) error {
		tbl, err := txn.Table(request.Table)
		if err != nil {
			return err
		}
		cursor, err := tbl.Cursor()
		if err != nil {
			return err
		}
		defer cursor.Close()

		response.Entries, err = collectRange(cursor, request)
		return err
	})
	return response
}

// collectRange materializes a bounded scan. The cursor cannot outlive
// the transaction or cross goroutines, so entries are copied into the
// response.
func collectRange(cursor database.Cursor, request RangeRequest) ([]Entry, error) {
	var positioned bool
	switch {
	case request.Start != nil && request.Reverse:
		// A reverse scan starts at the largest key at or before Start.
		positioned = cursor.Seek(request.Start)
		if positioned {
			key, err := cursor.Key()
			if err != nil {
				return nil, err
			}
			if !bytes.Equal(key, request.Start) {
				positioned = cursor.Prev()
			}
		} else {
			positioned = cursor.Last()
		}
	case request.Start != nil:
		positioned = cursor.Seek(request.Start)
	case request.Reverse:
		positioned = cursor.Last()
	default:
		positioned = cursor.First()
	}

	var entries []Entry
	for ; positioned; positioned = next(cursor, request.Reverse) {
		if request.Limit > 0 && len(entries) == request.Limit {
			break
		}
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		value, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}

func next(cursor database.Cursor, reverse bool) bool {
	if reverse {
		return cursor.Prev()
	}
	return cursor.Next()
}
