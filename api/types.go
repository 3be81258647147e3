package api

import (
	"time"

	"github.com/vocdoni/psephos/types"
)

// ProposalRequest is the body of the proposal creation endpoint.
type ProposalRequest struct {
	ProposalID      types.ProposalID `json:"proposalId"`
	Creator         string           `json:"creator"`
	Title           string           `json:"title"`
	Options         []string         `json:"options"`
	CredentialToken string           `json:"credentialToken"`
	MinThreshold    uint64           `json:"minThreshold"`
	VotingPeriod    uint64           `json:"votingPeriodSeconds"`
}

// ProposalResponse describes a proposal to clients.
type ProposalResponse struct {
	ProposalID      types.ProposalID `json:"proposalId"`
	Creator         string           `json:"creator"`
	Title           string           `json:"title"`
	Options         []string         `json:"options"`
	CredentialToken string           `json:"credentialToken"`
	MinThreshold    uint64           `json:"minThreshold"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         time.Time        `json:"endTime"`
	VoteCount       uint64           `json:"voteCount"`
	IsFinalized     bool             `json:"isFinalized"`
}

// ProposalListResponse is the response of the proposal listing endpoint.
type ProposalListResponse struct {
	Proposals []types.ProposalID `json:"proposals"`
}

// ResultsResponse carries the per-option reveal tallies of a proposal.
type ResultsResponse struct {
	ProposalID    types.ProposalID `json:"proposalId"`
	Tallies       []uint64         `json:"tallies"`
	TotalRevealed uint64           `json:"totalRevealed"`
	IsFinalized   bool             `json:"isFinalized"`
}

// VoteRequest is the body of the vote casting endpoint. Proof and
// PublicWitness carry the serialized eligibility proof blobs.
type VoteRequest struct {
	ProposalID     types.ProposalID `json:"proposalId"`
	Voter          string           `json:"voter"`
	Nullifier      types.HexBytes   `json:"nullifier"`
	VoteCommitment types.HexBytes   `json:"voteCommitment"`
	Proof          types.HexBytes   `json:"proof"`
	PublicWitness  types.HexBytes   `json:"publicWitness"`
}

// VoteResponse is returned by the vote casting and vote record endpoints.
type VoteResponse struct {
	ProposalID     types.ProposalID `json:"proposalId"`
	Nullifier      types.HexBytes   `json:"nullifier"`
	VoteCommitment types.HexBytes   `json:"voteCommitment"`
	Timestamp      time.Time        `json:"timestamp"`
	IsRevealed     bool             `json:"isRevealed"`
	RevealedChoice *uint8           `json:"revealedChoice,omitempty"`
}

// RevealRequest is the body of the vote reveal endpoint.
type RevealRequest struct {
	ProposalID  types.ProposalID `json:"proposalId"`
	Nullifier   types.HexBytes   `json:"nullifier"`
	Choice      uint8            `json:"choice"`
	VoterSecret types.HexBytes   `json:"voterSecret"`
}

// FinalizeRequest is the body of the proposal finalization endpoint.
type FinalizeRequest struct {
	Authority string `json:"authority"`
}
