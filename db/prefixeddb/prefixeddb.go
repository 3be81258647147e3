// Package prefixeddb wraps a db.Database, scoping all keys under a fixed
// prefix. It allows multiple logical namespaces to share one database.
package prefixeddb

import (
	"bytes"

	"github.com/vocdoni/psephos/db"
)

// PrefixedDatabase wraps a db.Database, prefixing all keys.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a database which prefixes all keys with prefix.
func NewPrefixedDatabase(database db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{db: database, prefix: bytes.Clone(prefix)}
}

// Get implements db.Reader.Get.
func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(prefixKey(d.prefix, key))
}

// Iterate implements db.Reader.Iterate. The prefix of the database is
// stripped from the keys passed to the callback.
func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(d.db, d.prefix, prefix, callback)
}

// WriteTx returns a write transaction scoped under the database prefix.
func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Close closes the underlying database.
func (d *PrefixedDatabase) Close() error {
	return d.db.Close()
}

// PrefixedReader wraps a db.Reader, prefixing all keys.
type PrefixedReader struct {
	reader db.Reader
	prefix []byte
}

// NewPrefixedReader returns a reader which prefixes all keys with prefix.
func NewPrefixedReader(reader db.Reader, prefix []byte) *PrefixedReader {
	return &PrefixedReader{reader: reader, prefix: bytes.Clone(prefix)}
}

// Get implements db.Reader.Get.
func (r *PrefixedReader) Get(key []byte) ([]byte, error) {
	return r.reader.Get(prefixKey(r.prefix, key))
}

// Iterate implements db.Reader.Iterate, stripping the reader prefix from the
// keys passed to the callback.
func (r *PrefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(r.reader, r.prefix, prefix, callback)
}

// PrefixedWriteTx wraps a db.WriteTx, prefixing all keys. Multiple
// PrefixedWriteTx can share the same underlying transaction, so mutations in
// different namespaces commit atomically together.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx returns a write transaction which prefixes all keys
// with prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{tx: tx, prefix: bytes.Clone(prefix)}
}

// Get implements db.Reader.Get.
func (tx *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return tx.tx.Get(prefixKey(tx.prefix, key))
}

// Iterate implements db.Reader.Iterate, stripping the transaction prefix
// from the keys passed to the callback.
func (tx *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(tx.tx, tx.prefix, prefix, callback)
}

// Set implements db.WriteTx.Set.
func (tx *PrefixedWriteTx) Set(key, value []byte) error {
	return tx.tx.Set(prefixKey(tx.prefix, key), value)
}

// Delete implements db.WriteTx.Delete.
func (tx *PrefixedWriteTx) Delete(key []byte) error {
	return tx.tx.Delete(prefixKey(tx.prefix, key))
}

// Commit commits the underlying transaction, applying the writes of every
// namespace sharing it.
func (tx *PrefixedWriteTx) Commit() error {
	return tx.tx.Commit()
}

// Discard discards the underlying transaction.
func (tx *PrefixedWriteTx) Discard() {
	tx.tx.Discard()
}

func prefixKey(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func iteratePrefixed(reader db.Reader, dbPrefix, prefix []byte, callback func(key, value []byte) bool) error {
	full := prefixKey(dbPrefix, prefix)
	return reader.Iterate(full, func(key, value []byte) bool {
		return callback(key[len(dbPrefix):], value)
	})
}
