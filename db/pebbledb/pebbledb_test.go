package pebbledb

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/psephos/db"
	"github.com/vocdoni/psephos/db/prefixeddb"
)

func TestWriteTx(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(database.Close(), qt.IsNil) }()

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("k1"), []byte("v1")), qt.IsNil)

	// pending writes are visible inside the tx but not outside
	v, err := wTx.Get([]byte("k1"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "v1")
	_, err = database.Get([]byte("k1"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTx.Commit(), qt.IsNil)
	v, err = database.Get([]byte("k1"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "v1")
}

func TestWriteTxDiscard(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(database.Close(), qt.IsNil) }()

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("gone"), []byte("x")), qt.IsNil)
	wTx.Discard()

	_, err = database.Get([]byte("gone"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestDelete(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(database.Close(), qt.IsNil) }()

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("k"), []byte("v")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	wTx = database.WriteTx()
	c.Assert(wTx.Delete([]byte("k")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	_, err = database.Get([]byte("k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestIterate(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(database.Close(), qt.IsNil) }()

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("a/1"), []byte("1")), qt.IsNil)
	c.Assert(wTx.Set([]byte("a/2"), []byte("2")), qt.IsNil)
	c.Assert(wTx.Set([]byte("b/1"), []byte("3")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	var keys []string
	err = database.Iterate([]byte("a/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"a/1", "a/2"})
}

func TestPrefixed(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(database.Close(), qt.IsNil) }()

	prefixed := prefixeddb.NewPrefixedDatabase(database, []byte("ns/"))
	wTx := prefixed.WriteTx()
	c.Assert(wTx.Set([]byte("key"), []byte("val")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	// visible through the prefixed view with the bare key
	v, err := prefixed.Get([]byte("key"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "val")

	// stored under the full key in the underlying database
	v, err = database.Get([]byte("ns/key"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "val")

	// prefixed iteration strips the namespace
	var keys []string
	err = prefixed.Iterate(nil, func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"key"})
}
