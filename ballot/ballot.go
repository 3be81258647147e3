// Package ballot implements the proposal lifecycle and vote admission rules
// of the psephos node: proposal creation, proof-gated vote casting with
// nullifier uniqueness, commit-reveal tallying and creator-only
// finalization.
//
// Each proposal moves through the phases
//
//	Created -> Voting [start, end) -> Ended (t >= end) -> Finalized
//
// Votes are admitted only while Voting, reveals only after Ended and before
// finalization, and finalization happens exactly once.
package ballot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/psephos/balance"
	"github.com/vocdoni/psephos/ballotproof"
	"github.com/vocdoni/psephos/crypto/commitment"
	"github.com/vocdoni/psephos/log"
	"github.com/vocdoni/psephos/storage"
	"github.com/vocdoni/psephos/types"
	"github.com/vocdoni/psephos/verifier"
)

// Ledger is the ballot ledger: it owns every state transition of proposals,
// vote records and results. All operations are synchronous and atomic; an
// error leaves no observable state change.
type Ledger struct {
	stg      *storage.Storage
	verifier verifier.Verifier
	balances balance.Source
	clock    Clock
}

// New creates a new Ledger. A nil clock defaults to the system clock.
func New(stg *storage.Storage, vrf verifier.Verifier, balances balance.Source, clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock
	}
	return &Ledger{
		stg:      stg,
		verifier: vrf,
		balances: balances,
		clock:    clock,
	}
}

// CreateProposal validates and stores a new proposal together with its
// zeroed results record. The voting window starts immediately and lasts for
// votingPeriod. Reusing a proposal id fails with ErrProposalExists.
func (l *Ledger) CreateProposal(creator common.Address, pid types.ProposalID, title string,
	options []string, credentialToken common.Address, minThreshold uint64,
	votingPeriod time.Duration,
) (*types.Proposal, *types.Results, error) {
	if title == "" {
		return nil, nil, ErrEmptyTitle
	}
	if len(title) > types.MaxTitleLength {
		return nil, nil, fmt.Errorf("%w: %d > %d chars", ErrTitleTooLong, len(title), types.MaxTitleLength)
	}
	if len(options) < types.MinOptions {
		return nil, nil, fmt.Errorf("%w: %d < %d", ErrTooFewOptions, len(options), types.MinOptions)
	}
	if len(options) > types.MaxOptions {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrTooManyOptions, len(options), types.MaxOptions)
	}
	for i, option := range options {
		if len(option) > types.MaxOptionLength {
			return nil, nil, fmt.Errorf("%w: option %d is %d chars", ErrOptionTooLong, i, len(option))
		}
	}
	if votingPeriod <= 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidVotingPeriod, votingPeriod)
	}

	now := l.clock.Now()
	proposal := &types.Proposal{
		ID:              pid,
		Creator:         creator,
		Title:           title,
		Options:         options,
		CredentialToken: credentialToken,
		MinThreshold:    minThreshold,
		StartTime:       now,
		EndTime:         now.Add(votingPeriod),
	}
	if err := l.stg.CreateProposal(proposal); err != nil {
		if errors.Is(err, storage.ErrProposalExists) {
			return nil, nil, fmt.Errorf("%w: %s", ErrProposalExists, pid)
		}
		return nil, nil, fmt.Errorf("create proposal: %w", err)
	}

	results, err := l.stg.Results(pid)
	if err != nil {
		return nil, nil, fmt.Errorf("load results: %w", err)
	}
	log.Infow("proposal created", "id", pid.String(), "creator", creator.Hex(),
		"options", len(options), "endTime", proposal.EndTime)
	return proposal, results, nil
}

// CastVote admits a vote into the ledger. The operation is a chain of hard
// gates: voting window, proof structure, public input consistency, an
// independent credential balance check, cryptographic verification and
// finally the atomic nullifier-unique insert. Any failed gate aborts the
// whole operation with no partial effect.
func (l *Ledger) CastVote(ctx context.Context, voter common.Address, pid types.ProposalID,
	nullifier, voteCommitment types.HexBytes, proof, publicWitness []byte,
) (*types.VoteRecord, error) {
	proposal, err := l.Proposal(pid)
	if err != nil {
		return nil, err
	}
	if !proposal.AcceptingVotes(l.clock.Now()) {
		return nil, fmt.Errorf("%w: proposal %s", ErrVotingNotActive, pid)
	}

	// structural checks on the submitted values and the proof blobs
	if len(nullifier) != types.NullifierSize {
		return nil, fmt.Errorf("%w: nullifier is %d bytes", ErrInvalidProofFormat, len(nullifier))
	}
	if len(voteCommitment) != types.CommitmentSize {
		return nil, fmt.Errorf("%w: commitment is %d bytes", ErrInvalidProofFormat, len(voteCommitment))
	}
	if err := ballotproof.CheckProof(proof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProofFormat, err)
	}
	witness, err := ballotproof.DecodePublicWitness(publicWitness)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProofFormat, err)
	}

	// the witness must bind the proof to this exact proposal, commitment
	// and nullifier, otherwise a valid proof could be replayed elsewhere
	if !witness.MinThreshold.IsUint64() || witness.MinThreshold.Uint64() != proposal.MinThreshold {
		return nil, fmt.Errorf("%w: threshold", ErrPublicInputMismatch)
	}
	if !witness.ProposalID.IsUint64() || witness.ProposalID.Uint64() != uint64(pid) {
		return nil, fmt.Errorf("%w: proposal id", ErrPublicInputMismatch)
	}
	if !witness.VoteCommitment.Equal(voteCommitment) {
		return nil, fmt.Errorf("%w: vote commitment", ErrPublicInputMismatch)
	}
	if !witness.Nullifier.Equal(nullifier) {
		return nil, fmt.Errorf("%w: nullifier", ErrPublicInputMismatch)
	}

	// independent on-chain balance check, redundant with the private claim
	// inside the proof
	credBalance, err := l.balances.BalanceOf(ctx, voter, proposal.CredentialToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}
	if credBalance.Cmp(new(big.Int).SetUint64(proposal.MinThreshold)) < 0 {
		return nil, fmt.Errorf("%w: %s < %d", ErrInsufficientBalance, credBalance, proposal.MinThreshold)
	}

	if err := l.verifier.Verify(proof, publicWitness); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	record := &types.VoteRecord{
		ProposalID:     pid,
		Nullifier:      nullifier,
		VoteCommitment: voteCommitment,
		Timestamp:      l.clock.Now(),
	}
	if err := l.stg.InsertVote(record); err != nil {
		switch {
		case errors.Is(err, storage.ErrNullifierExists):
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNullifier, nullifier)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%w: proposal %s", ErrNotFound, pid)
		default:
			return nil, fmt.Errorf("insert vote: %w", err)
		}
	}

	log.Debugw("vote cast", "proposal", pid.String(), "nullifier", nullifier.String())
	return record, nil
}

// RevealVote discloses the choice and secret behind a previously cast vote.
// It recomputes the commitment from the disclosed values and requires exact
// equality with the stored one, then flips the record to revealed and bumps
// the matching tally atomically. Reveals are admitted only after the voting
// window closes and before the proposal is finalized.
func (l *Ledger) RevealVote(pid types.ProposalID, nullifier types.HexBytes,
	choice uint8, voterSecret []byte,
) (*types.Results, error) {
	proposal, err := l.Proposal(pid)
	if err != nil {
		return nil, err
	}
	if !proposal.Ended(l.clock.Now()) {
		return nil, fmt.Errorf("%w: proposal %s", ErrVotingNotEnded, pid)
	}
	if proposal.IsFinalized {
		return nil, fmt.Errorf("%w: proposal %s", ErrProposalFinalized, pid)
	}
	if int(choice) >= len(proposal.Options) {
		return nil, fmt.Errorf("%w: %d of %d options", ErrInvalidChoice, choice, len(proposal.Options))
	}

	record, err := l.stg.VoteRecord(pid, nullifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no vote with nullifier %s", ErrNotFound, nullifier)
		}
		return nil, fmt.Errorf("load vote record: %w", err)
	}
	if record.IsRevealed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRevealed, nullifier)
	}

	expected, err := commitment.VoteCommitment(choice, voterSecret, pid)
	if err != nil {
		return nil, fmt.Errorf("recompute commitment: %w", err)
	}
	if !expected.Equal(record.VoteCommitment) {
		return nil, fmt.Errorf("%w: nullifier %s", ErrCommitmentMismatch, nullifier)
	}

	results, err := l.stg.RevealVote(pid, nullifier, choice)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyRevealed):
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRevealed, nullifier)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%w: no vote with nullifier %s", ErrNotFound, nullifier)
		case errors.Is(err, storage.ErrInvalidChoice):
			return nil, fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
		case errors.Is(err, storage.ErrFinalized):
			return nil, fmt.Errorf("%w: proposal %s", ErrProposalFinalized, pid)
		default:
			return nil, fmt.Errorf("reveal vote: %w", err)
		}
	}

	log.Debugw("vote revealed", "proposal", pid.String(), "choice", choice)
	return results, nil
}

// FinalizeProposal freezes the proposal and its results. Only the creator
// may finalize, only after the voting window closes, and only once.
// Tallies stay whatever the reveals accumulated up to this point.
func (l *Ledger) FinalizeProposal(authority common.Address, pid types.ProposalID) (*types.Proposal, *types.Results, error) {
	proposal, err := l.Proposal(pid)
	if err != nil {
		return nil, nil, err
	}
	if authority != proposal.Creator {
		return nil, nil, fmt.Errorf("%w: %s is not the proposal creator", ErrUnauthorized, authority.Hex())
	}
	if !proposal.Ended(l.clock.Now()) {
		return nil, nil, fmt.Errorf("%w: proposal %s", ErrVotingNotEnded, pid)
	}
	if proposal.IsFinalized {
		return nil, nil, fmt.Errorf("%w: proposal %s", ErrProposalFinalized, pid)
	}

	finalized, results, err := l.stg.FinalizeProposal(pid)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFinalized):
			return nil, nil, fmt.Errorf("%w: proposal %s", ErrProposalFinalized, pid)
		case errors.Is(err, storage.ErrNotFound):
			return nil, nil, fmt.Errorf("%w: proposal %s", ErrNotFound, pid)
		default:
			return nil, nil, fmt.Errorf("finalize proposal: %w", err)
		}
	}

	log.Infow("proposal finalized", "id", pid.String(),
		"votes", finalized.VoteCount, "revealed", results.TotalRevealed())
	return finalized, results, nil
}

// Proposal retrieves a proposal by id.
func (l *Ledger) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	proposal, err := l.stg.Proposal(pid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: proposal %s", ErrNotFound, pid)
		}
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	return proposal, nil
}

// Results retrieves the results record of a proposal.
func (l *Ledger) Results(pid types.ProposalID) (*types.Results, error) {
	results, err := l.stg.Results(pid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: proposal %s", ErrNotFound, pid)
		}
		return nil, fmt.Errorf("load results: %w", err)
	}
	return results, nil
}

// VoteRecord retrieves the vote record for (proposal, nullifier).
func (l *Ledger) VoteRecord(pid types.ProposalID, nullifier types.HexBytes) (*types.VoteRecord, error) {
	record, err := l.stg.VoteRecord(pid, nullifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no vote with nullifier %s", ErrNotFound, nullifier)
		}
		return nil, fmt.Errorf("load vote record: %w", err)
	}
	return record, nil
}

// ListProposals returns the ids of all stored proposals.
func (l *Ledger) ListProposals() ([]types.ProposalID, error) {
	return l.stg.ListProposals()
}
