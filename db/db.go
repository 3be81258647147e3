// Package db defines the key-value database interface used by the node
// storage. Implementations must provide atomic write transactions: a
// transaction either commits all its mutations or none.
package db

import "errors"

var (
	// ErrKeyNotFound is returned when the key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned when a write transaction cannot commit due to
	// a conflicting concurrent write.
	ErrConflict = errors.New("transaction conflict")
)

// Options defines generic parameters for the database implementations.
type Options struct {
	Path string
}

// Reader is the interface for reading key-values from a database or a
// pending write transaction.
type Reader interface {
	// Get retrieves the value for the given key. Returns ErrKeyNotFound if
	// the key does not exist.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback with all key-value pairs whose key starts with
	// prefix. The iteration stops when the callback returns false. The
	// key and value byte slices are only valid for the duration of the call.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// Database is the interface for a key-value database with atomic write
// transactions.
type Database interface {
	Reader
	// WriteTx creates a new write transaction. The transaction must be
	// finished with Commit or Discard.
	WriteTx() WriteTx
	// Close closes the database.
	Close() error
}

// WriteTx is the interface for a write transaction. Reads observe the
// pending writes of the transaction. A WriteTx is not safe for concurrent
// use.
type WriteTx interface {
	Reader
	// Set adds a key-value pair, overwriting any previous value.
	Set(key, value []byte) error
	// Delete removes a key-value pair. Deleting a non-existing key is not
	// an error.
	Delete(key []byte) error
	// Commit atomically applies all pending writes.
	Commit() error
	// Discard drops the transaction. Calling Discard after Commit is a
	// no-op, so it is safe to defer.
	Discard()
}
