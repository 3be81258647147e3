/*
Package storage provides the persistent ballot ledger of the psephos node.

The storage uses a key-value database with prefixed namespaces:

  - p/ : proposalID → Proposal metadata
  - r/ : proposalID → Results (per-option tallies)
  - v/ : proposalID + nullifier → VoteRecord

Every mutating operation runs inside a single write transaction under the
global lock, so an operation either fully commits all its record mutations
or none. The vote namespace is the double-vote guard: a vote record is
created with an insert-if-absent inside the transaction, keyed by
(proposalID, nullifier), never as a separate existence check followed by an
insert.
*/
package storage

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vocdoni/psephos/db"
	"github.com/vocdoni/psephos/db/prefixeddb"
	"github.com/vocdoni/psephos/types"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrProposalExists is returned when creating a proposal whose id is
	// already taken.
	ErrProposalExists = errors.New("proposal already exists")
	// ErrNullifierExists is returned when a vote record for the same
	// (proposal, nullifier) pair already exists.
	ErrNullifierExists = errors.New("nullifier already exists")
	// ErrAlreadyRevealed is returned when revealing a vote record twice.
	ErrAlreadyRevealed = errors.New("vote already revealed")
	// ErrFinalized is returned when mutating an already finalized proposal.
	ErrFinalized = errors.New("proposal already finalized")
	// ErrInvalidChoice is returned when a revealed choice is out of range
	// for the proposal options.
	ErrInvalidChoice = errors.New("invalid vote choice")

	// Namespace prefixes.
	proposalPrefix = []byte("p/")
	resultsPrefix  = []byte("r/")
	votePrefix     = []byte("v/")

	proposalCacheSize = 1024
)

// Storage manages the persistent records of proposals, results and votes.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	cache      *lru.Cache[types.ProposalID, *types.Proposal]
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	cache, err := lru.New[types.ProposalID, *types.Proposal](proposalCacheSize)
	if err != nil {
		panic(fmt.Sprintf("create proposal cache: %v", err))
	}
	return &Storage{
		db:    database,
		cache: cache,
	}
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// voteKey builds the composite vote record key (proposalID, nullifier).
func voteKey(pid types.ProposalID, nullifier types.HexBytes) []byte {
	key := make([]byte, 0, 8+len(nullifier))
	key = append(key, pid.Bytes()...)
	return append(key, nullifier...)
}

// getArtifact retrieves and decodes a record from the given namespace of a
// reader. Returns ErrNotFound if the key does not exist.
func getArtifact(reader db.Reader, prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(reader, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	if err := DecodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores a record into the given namespace of a
// write transaction.
func setArtifact(wtx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := prefixeddb.NewPrefixedWriteTx(wtx, prefix).Set(key, data); err != nil {
		return fmt.Errorf("set artifact: %w", err)
	}
	return nil
}
