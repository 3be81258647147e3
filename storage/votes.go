package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/psephos/log"
	"github.com/vocdoni/psephos/types"
)

// InsertVote creates a new vote record keyed by (proposalID, nullifier) and
// increments the proposal vote count, both in the same transaction. The
// insert-if-absent check runs inside the transaction under the global lock,
// so two concurrent casts with the same nullifier cannot both commit: the
// second one observes ErrNullifierExists.
func (s *Storage) InsertVote(record *types.VoteRecord) error {
	if record == nil {
		return fmt.Errorf("nil vote record")
	}
	if len(record.Nullifier) != types.NullifierSize {
		return fmt.Errorf("nullifier is %d bytes, expected %d", len(record.Nullifier), types.NullifierSize)
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	defer s.cache.Remove(record.ProposalID)

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	key := voteKey(record.ProposalID, record.Nullifier)
	existing := &types.VoteRecord{}
	if err := getArtifact(wtx, votePrefix, key, existing); err == nil {
		return fmt.Errorf("%w: %s", ErrNullifierExists, record.Nullifier)
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check vote existence: %w", err)
	}

	proposal := &types.Proposal{}
	if err := getArtifact(wtx, proposalPrefix, record.ProposalID.Bytes(), proposal); err != nil {
		return err
	}
	proposal.VoteCount++

	if err := setArtifact(wtx, votePrefix, key, record); err != nil {
		return err
	}
	if err := setArtifact(wtx, proposalPrefix, record.ProposalID.Bytes(), proposal); err != nil {
		return err
	}
	return wtx.Commit()
}

// VoteRecord retrieves the vote record for (proposalID, nullifier). Returns
// ErrNotFound if no vote was cast with that nullifier.
func (s *Storage) VoteRecord(pid types.ProposalID, nullifier types.HexBytes) (*types.VoteRecord, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	record := &types.VoteRecord{}
	if err := getArtifact(s.db, votePrefix, voteKey(pid, nullifier), record); err != nil {
		return nil, err
	}
	return record, nil
}

// CountVotes returns the number of vote records stored for a proposal and,
// of those, how many are revealed.
func (s *Storage) CountVotes(pid types.ProposalID) (total, revealed uint64, err error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	err = s.db.Iterate(append(votePrefix, pid.Bytes()...), func(key, value []byte) bool {
		record := &types.VoteRecord{}
		if err := DecodeArtifact(value, record); err != nil {
			log.Warnw("skipping undecodable vote record",
				"proposal", pid.String(), "key", fmt.Sprintf("%x", key), "error", err.Error())
			return true
		}
		total++
		if record.IsRevealed {
			revealed++
		}
		return true
	})
	if err != nil {
		return 0, 0, fmt.Errorf("iterate votes: %w", err)
	}
	return total, revealed, nil
}

// RevealVote marks the vote record for (proposalID, nullifier) as revealed
// with the given choice and increments the matching tally, atomically.
// Returns ErrNotFound if the record does not exist, ErrAlreadyRevealed if
// it was revealed before, ErrInvalidChoice if the choice is out of range
// for the stored tallies, and ErrFinalized if the results were already
// frozen. The finalized check runs inside the transaction under the global
// lock, so a reveal racing a concurrent finalization cannot mutate frozen
// tallies.
func (s *Storage) RevealVote(pid types.ProposalID, nullifier types.HexBytes, choice uint8) (*types.Results, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	key := voteKey(pid, nullifier)
	record := &types.VoteRecord{}
	if err := getArtifact(wtx, votePrefix, key, record); err != nil {
		return nil, err
	}
	if record.IsRevealed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRevealed, nullifier)
	}

	results := &types.Results{}
	if err := getArtifact(wtx, resultsPrefix, pid.Bytes(), results); err != nil {
		return nil, err
	}
	if results.IsFinalized {
		return nil, fmt.Errorf("%w: %s", ErrFinalized, pid)
	}
	if int(choice) >= len(results.Tallies) {
		return nil, fmt.Errorf("%w: %d of %d options", ErrInvalidChoice, choice, len(results.Tallies))
	}

	record.IsRevealed = true
	revealedChoice := choice
	record.RevealedChoice = &revealedChoice
	results.Tallies[choice]++

	if err := setArtifact(wtx, votePrefix, key, record); err != nil {
		return nil, err
	}
	if err := setArtifact(wtx, resultsPrefix, pid.Bytes(), results); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reveal: %w", err)
	}
	return results, nil
}
