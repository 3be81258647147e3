package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/psephos/db"
	"github.com/vocdoni/psephos/db/pebbledb"
	"github.com/vocdoni/psephos/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	database, err := pebbledb.New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	s := New(database)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testProposal(pid types.ProposalID) *types.Proposal {
	now := time.Now().Truncate(time.Second).UTC()
	return &types.Proposal{
		ID:              pid,
		Creator:         common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Title:           "upgrade the treasury module",
		Options:         []string{"Yes", "No", "Abstain"},
		CredentialToken: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		MinThreshold:    50,
		StartTime:       now,
		EndTime:         now.Add(time.Hour),
	}
}

func testNullifier(b byte) types.HexBytes {
	n := make(types.HexBytes, types.NullifierSize)
	n[types.NullifierSize-1] = b
	return n
}

func testVote(pid types.ProposalID, nullifier types.HexBytes) *types.VoteRecord {
	return &types.VoteRecord{
		ProposalID:     pid,
		Nullifier:      nullifier,
		VoteCommitment: make(types.HexBytes, types.CommitmentSize),
		Timestamp:      time.Now().UTC(),
	}
}

func TestCreateProposal(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)

	p := testProposal(1)
	c.Assert(s.CreateProposal(p), qt.IsNil)

	stored, err := s.Proposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Title, qt.Equals, p.Title)
	c.Assert(stored.Options, qt.DeepEquals, p.Options)
	c.Assert(stored.VoteCount, qt.Equals, uint64(0))
	c.Assert(stored.IsFinalized, qt.IsFalse)

	// the results record is created together with the proposal, zeroed
	results, err := s.Results(1)
	c.Assert(err, qt.IsNil)
	c.Assert(results.Tallies, qt.DeepEquals, []uint64{0, 0, 0})
	c.Assert(results.IsFinalized, qt.IsFalse)
}

func TestCreateProposalCollision(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)

	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)

	again := testProposal(1)
	again.Title = "a different title"
	err := s.CreateProposal(again)
	c.Assert(err, qt.ErrorIs, ErrProposalExists)

	// the stored proposal is untouched
	stored, err := s.Proposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Title, qt.Equals, "upgrade the treasury module")
}

func TestProposalNotFound(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)

	_, err := s.Proposal(999)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = s.Results(999)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestInsertVote(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)

	c.Assert(s.InsertVote(testVote(1, testNullifier(1))), qt.IsNil)

	p, err := s.Proposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(p.VoteCount, qt.Equals, uint64(1))

	record, err := s.VoteRecord(1, testNullifier(1))
	c.Assert(err, qt.IsNil)
	c.Assert(record.IsRevealed, qt.IsFalse)
	c.Assert(record.RevealedChoice, qt.IsNil)
}

func TestInsertVoteDuplicateNullifier(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)

	c.Assert(s.InsertVote(testVote(1, testNullifier(1))), qt.IsNil)
	err := s.InsertVote(testVote(1, testNullifier(1)))
	c.Assert(err, qt.ErrorIs, ErrNullifierExists)

	// a failed insert must not bump the vote count
	p, err := s.Proposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(p.VoteCount, qt.Equals, uint64(1))

	// the same nullifier is fine on a different proposal
	c.Assert(s.CreateProposal(testProposal(2)), qt.IsNil)
	c.Assert(s.InsertVote(testVote(2, testNullifier(1))), qt.IsNil)
}

func TestInsertVoteConcurrentSameNullifier(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)

	const attempts = 16
	errs := make(chan error, attempts)
	g := new(errgroup.Group)
	for range attempts {
		g.Go(func() error {
			errs <- s.InsertVote(testVote(1, testNullifier(7)))
			return nil
		})
	}
	c.Assert(g.Wait(), qt.IsNil)
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNullifierExists):
			dup++
		default:
			c.Fatalf("unexpected error: %v", err)
		}
	}
	c.Assert(ok, qt.Equals, 1)
	c.Assert(dup, qt.Equals, attempts-1)

	p, err := s.Proposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(p.VoteCount, qt.Equals, uint64(1))
}

func TestRevealVote(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)
	c.Assert(s.InsertVote(testVote(1, testNullifier(1))), qt.IsNil)

	results, err := s.RevealVote(1, testNullifier(1), 2)
	c.Assert(err, qt.IsNil)
	c.Assert(results.Tallies, qt.DeepEquals, []uint64{0, 0, 1})

	record, err := s.VoteRecord(1, testNullifier(1))
	c.Assert(err, qt.IsNil)
	c.Assert(record.IsRevealed, qt.IsTrue)
	c.Assert(*record.RevealedChoice, qt.Equals, uint8(2))

	// revealing twice must fail and not change the tallies
	_, err = s.RevealVote(1, testNullifier(1), 2)
	c.Assert(err, qt.ErrorIs, ErrAlreadyRevealed)
	results, err = s.Results(1)
	c.Assert(err, qt.IsNil)
	c.Assert(results.Tallies, qt.DeepEquals, []uint64{0, 0, 1})
}

func TestRevealVoteErrors(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)
	c.Assert(s.InsertVote(testVote(1, testNullifier(1))), qt.IsNil)

	// unknown nullifier
	_, err := s.RevealVote(1, testNullifier(9), 0)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	// out-of-range choice
	_, err = s.RevealVote(1, testNullifier(1), 3)
	c.Assert(err, qt.ErrorIs, ErrInvalidChoice)

	// the failed reveal must leave the record untouched
	record, err := s.VoteRecord(1, testNullifier(1))
	c.Assert(err, qt.IsNil)
	c.Assert(record.IsRevealed, qt.IsFalse)
}

func TestRevealVoteAfterFinalize(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)
	c.Assert(s.InsertVote(testVote(1, testNullifier(1))), qt.IsNil)

	_, _, err := s.FinalizeProposal(1)
	c.Assert(err, qt.IsNil)

	// tallies are frozen once results are finalized, even when the reveal
	// itself is otherwise valid
	_, err = s.RevealVote(1, testNullifier(1), 0)
	c.Assert(err, qt.ErrorIs, ErrFinalized)

	results, err := s.Results(1)
	c.Assert(err, qt.IsNil)
	c.Assert(results.Tallies, qt.DeepEquals, []uint64{0, 0, 0})
	record, err := s.VoteRecord(1, testNullifier(1))
	c.Assert(err, qt.IsNil)
	c.Assert(record.IsRevealed, qt.IsFalse)
}

func TestTallyConservation(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)

	for i := byte(1); i <= 6; i++ {
		c.Assert(s.InsertVote(testVote(1, testNullifier(i))), qt.IsNil)
	}
	for i := byte(1); i <= 4; i++ {
		_, err := s.RevealVote(1, testNullifier(i), i%3)
		c.Assert(err, qt.IsNil)
	}

	results, err := s.Results(1)
	c.Assert(err, qt.IsNil)
	total, revealed, err := s.CountVotes(1)
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint64(6))
	c.Assert(revealed, qt.Equals, uint64(4))
	c.Assert(results.TotalRevealed(), qt.Equals, revealed)
}

func TestFinalizeProposal(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)

	proposal, results, err := s.FinalizeProposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(proposal.IsFinalized, qt.IsTrue)
	c.Assert(results.IsFinalized, qt.IsTrue)

	// both stored records carry the flag
	stored, err := s.Proposal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.IsFinalized, qt.IsTrue)
	storedResults, err := s.Results(1)
	c.Assert(err, qt.IsNil)
	c.Assert(storedResults.IsFinalized, qt.IsTrue)

	// finalizing twice must fail
	_, _, err = s.FinalizeProposal(1)
	c.Assert(err, qt.ErrorIs, ErrFinalized)
}

func TestListProposals(t *testing.T) {
	c := qt.New(t)
	s := newTestStorage(t)

	pids, err := s.ListProposals()
	c.Assert(err, qt.IsNil)
	c.Assert(pids, qt.HasLen, 0)

	c.Assert(s.CreateProposal(testProposal(3)), qt.IsNil)
	c.Assert(s.CreateProposal(testProposal(1)), qt.IsNil)
	c.Assert(s.CreateProposal(testProposal(2)), qt.IsNil)

	pids, err = s.ListProposals()
	c.Assert(err, qt.IsNil)
	c.Assert(pids, qt.DeepEquals, []types.ProposalID{1, 2, 3})
}
