package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/psephos/types"
)

// CreateProposal stores a new proposal together with its zeroed results
// record, atomically: both records are created in the same transaction or
// not at all. It returns ErrProposalExists if the proposal id is already
// taken; ids are never silently overwritten.
func (s *Storage) CreateProposal(proposal *types.Proposal) error {
	if proposal == nil {
		return fmt.Errorf("nil proposal")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	key := proposal.ID.Bytes()
	existing := &types.Proposal{}
	if err := getArtifact(wtx, proposalPrefix, key, existing); err == nil {
		return fmt.Errorf("%w: %s", ErrProposalExists, proposal.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check proposal existence: %w", err)
	}

	results := &types.Results{
		ProposalID: proposal.ID,
		Tallies:    make([]uint64, len(proposal.Options)),
	}

	if err := setArtifact(wtx, proposalPrefix, key, proposal); err != nil {
		return err
	}
	if err := setArtifact(wtx, resultsPrefix, key, results); err != nil {
		return err
	}
	return wtx.Commit()
}

// Proposal retrieves a proposal by id. Returns ErrNotFound if it does not
// exist.
func (s *Storage) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	if p, ok := s.cache.Get(pid); ok {
		return p, nil
	}

	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	p := &types.Proposal{}
	if err := getArtifact(s.db, proposalPrefix, pid.Bytes(), p); err != nil {
		return nil, err
	}
	s.cache.Add(pid, p)
	return p, nil
}

// Results retrieves the results record of a proposal. Returns ErrNotFound
// if it does not exist.
func (s *Storage) Results(pid types.ProposalID) (*types.Results, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	r := &types.Results{}
	if err := getArtifact(s.db, resultsPrefix, pid.Bytes(), r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListProposals returns the ids of all stored proposals.
func (s *Storage) ListProposals() ([]types.ProposalID, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var pids []types.ProposalID
	err := s.db.Iterate(proposalPrefix, func(key, _ []byte) bool {
		pids = append(pids, types.ProposalIDFromBytes(key[len(proposalPrefix):]))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return pids, nil
}

// FinalizeProposal flips the finalized flag on the proposal and its results,
// atomically. Returns ErrFinalized if the proposal was already finalized.
// Authorization and timing preconditions are the caller's responsibility.
func (s *Storage) FinalizeProposal(pid types.ProposalID) (*types.Proposal, *types.Results, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	defer s.cache.Remove(pid)

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	key := pid.Bytes()
	proposal := &types.Proposal{}
	if err := getArtifact(wtx, proposalPrefix, key, proposal); err != nil {
		return nil, nil, err
	}
	if proposal.IsFinalized {
		return nil, nil, fmt.Errorf("%w: %s", ErrFinalized, pid)
	}
	results := &types.Results{}
	if err := getArtifact(wtx, resultsPrefix, key, results); err != nil {
		return nil, nil, err
	}

	proposal.IsFinalized = true
	results.IsFinalized = true

	if err := setArtifact(wtx, proposalPrefix, key, proposal); err != nil {
		return nil, nil, err
	}
	if err := setArtifact(wtx, resultsPrefix, key, results); err != nil {
		return nil, nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit finalization: %w", err)
	}
	return proposal, results, nil
}
