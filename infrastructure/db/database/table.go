package database

// TableSpec binds a table name to the codecs of its key and value types.
// Specs are declared once, next to the schema that owns them, and passed
// to View and Modify to open typed handles inside a transaction:
//
//	var heightTable = database.TableSpec[uint64, [32]byte]{
//		Name:  "block-heights",
//		Key:   database.Uint64,
//		Value: database.Hash32,
//	}
type TableSpec[K, V any] struct {
	Name  string
	Key   Codec[K]
	Value Codec[V]
}

// View opens the table for reading inside the given transaction. It
// returns ErrTableNotFound if the table was never created.
func (s TableSpec[K, V]) View(txn ReadTxn) (*View[K, V], error) {
	table, err := txn.Table(s.Name)
	if err != nil {
		return nil, err
	}
	return &View[K, V]{spec: s, table: table}, nil
}

// Modify opens the table for reading and writing inside the given write
// transaction, creating it if it does not exist.
func (s TableSpec[K, V]) Modify(txn WriteTxn) (*Modify[K, V], error) {
	table, err := txn.TableRw(s.Name)
	if err != nil {
		return nil, err
	}
	return &Modify[K, V]{View: View[K, V]{spec: s, table: table}, table: table}, nil
}

// View is a typed read-only handle to a table. Like the byte-level
// handles it wraps, it is bound to the transaction that opened it.
type View[K, V any] struct {
	spec  TableSpec[K, V]
	table ReadTable
}

// Get returns the value stored for the given key, or found=false if the
// key does not exist.
func (v *View[K, V]) Get(key K) (value V, found bool, err error) {
	data, err := v.table.Get(v.spec.Key.Encode(key))
	if err != nil {
		if IsNotFoundError(err) {
			return value, false, nil
		}
		return value, false, err
	}
	value, err = v.spec.Value.Decode(data)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

// Has returns true if the table contains the given key.
func (v *View[K, V]) Has(key K) (bool, error) {
	return v.table.Has(v.spec.Key.Encode(key))
}

// First returns the entry with the smallest key, or found=false if the
// table is empty.
func (v *View[K, V]) First() (key K, value V, found bool, err error) {
	return v.decodeExtremum(v.table.First())
}

// Last returns the entry with the largest key, or found=false if the
// table is empty.
func (v *View[K, V]) Last() (key K, value V, found bool, err error) {
	return v.decodeExtremum(v.table.Last())
}

func (v *View[K, V]) decodeExtremum(rawKey, rawValue []byte, rawFound bool, rawErr error) (
	key K, value V, found bool, err error) {

	if rawErr != nil || !rawFound {
		return key, value, false, rawErr
	}
	key, err = v.spec.Key.Decode(rawKey)
	if err != nil {
		return key, value, false, err
	}
	value, err = v.spec.Value.Decode(rawValue)
	if err != nil {
		return key, value, false, err
	}
	return key, value, true, nil
}

// Len returns the number of entries in the table.
func (v *View[K, V]) Len() (uint64, error) {
	return v.table.Len()
}

// Cursor begins a raw cursor over the table. Keys and values it yields
// decode with the spec's codecs.
func (v *View[K, V]) Cursor() (Cursor, error) {
	return v.table.Cursor()
}

// Modify is a typed read-write handle to a table.
type Modify[K, V any] struct {
	View[K, V]
	table WriteTable
}

// Put sets the value for the given key, overwriting any previous value.
func (m *Modify[K, V]) Put(key K, value V) error {
	return m.table.Put(m.spec.Key.Encode(key), m.spec.Value.Encode(value))
}

// Delete deletes the value for the given key. Deleting a missing key is
// not an error.
func (m *Modify[K, V]) Delete(key K) error {
	return m.table.Delete(m.spec.Key.Encode(key))
}
