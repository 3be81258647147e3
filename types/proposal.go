package types

import (
	"encoding/binary"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MaxTitleLength is the maximum length of a proposal title.
	MaxTitleLength = 100
	// MaxOptionLength is the maximum length of each voting option.
	MaxOptionLength = 50
	// MinOptions is the minimum number of voting options per proposal.
	MinOptions = 2
	// MaxOptions is the maximum number of voting options per proposal.
	MaxOptions = 10
	// NullifierSize is the size in bytes of a vote nullifier.
	NullifierSize = 32
	// CommitmentSize is the size in bytes of a vote commitment.
	CommitmentSize = 32
)

// ProposalID is the caller-chosen unique identifier of a proposal.
type ProposalID uint64

// Bytes returns the big-endian 8-byte encoding of the proposal ID, used as
// storage key material.
func (id ProposalID) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// BigInt returns the proposal ID as a big.Int.
func (id ProposalID) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(id))
}

// String returns the decimal representation of the proposal ID.
func (id ProposalID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ProposalIDFromBytes decodes a big-endian 8-byte proposal ID.
func ProposalIDFromBytes(b []byte) ProposalID {
	return ProposalID(binary.BigEndian.Uint64(b))
}

// ProposalIDFromString parses a decimal proposal ID.
func ProposalIDFromString(s string) (ProposalID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ProposalID(id), nil
}

// Proposal holds the metadata of a voting proposal. It is created once by the
// registry; VoteCount is bumped by the vote ledger and IsFinalized flipped by
// the finalization gate. Proposals are never deleted.
type Proposal struct {
	ID              ProposalID     `json:"id"`
	Creator         common.Address `json:"creator"`
	Title           string         `json:"title"`
	Options         []string       `json:"options"`
	CredentialToken common.Address `json:"credentialToken"`
	MinThreshold    uint64         `json:"minThreshold"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         time.Time      `json:"endTime"`
	VoteCount       uint64         `json:"voteCount"`
	IsFinalized     bool           `json:"isFinalized"`
}

// AcceptingVotes reports whether the proposal admits new votes at the given
// time: the voting window is [StartTime, EndTime) and the proposal must not
// be finalized.
func (p *Proposal) AcceptingVotes(now time.Time) bool {
	return !p.IsFinalized && !now.Before(p.StartTime) && now.Before(p.EndTime)
}

// Ended reports whether the voting window has closed at the given time.
func (p *Proposal) Ended(now time.Time) bool {
	return !now.Before(p.EndTime)
}

// Results holds the per-option tallies of a proposal. Tallies has the same
// length as the proposal options and is mutated only by vote reveals.
type Results struct {
	ProposalID  ProposalID `json:"proposalId"`
	Tallies     []uint64   `json:"tallies"`
	IsFinalized bool       `json:"isFinalized"`
}

// TotalRevealed returns the sum of all tallies, which equals the number of
// revealed vote records of the proposal.
func (r *Results) TotalRevealed() uint64 {
	var total uint64
	for _, t := range r.Tallies {
		total += t
	}
	return total
}

// VoteRecord is the persistent record of a cast vote. It is created once by
// the vote ledger, keyed by (proposal, nullifier), and mutated exactly once
// by a reveal.
type VoteRecord struct {
	ProposalID     ProposalID `json:"proposalId"`
	Nullifier      HexBytes   `json:"nullifier"`
	VoteCommitment HexBytes   `json:"voteCommitment"`
	Timestamp      time.Time  `json:"timestamp"`
	IsRevealed     bool       `json:"isRevealed"`
	RevealedChoice *uint8     `json:"revealedChoice,omitempty"`
}
