package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/vocdoni/psephos/types"
)

// newVote casts a vote into the ledger.
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	req := &VoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if !common.IsHexAddress(req.Voter) {
		ErrMalformedAddress.Withf("invalid voter address %q", req.Voter).Write(w)
		return
	}

	record, err := a.ledger.CastVote(r.Context(),
		common.HexToAddress(req.Voter),
		req.ProposalID,
		req.Nullifier,
		req.VoteCommitment,
		req.Proof,
		req.PublicWitness,
	)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, voteResponse(record))
}

// voteByNullifier retrieves a vote record by its nullifier.
// GET /votes/{proposalId}/{nullifier}
func (a *API) voteByNullifier(w http.ResponseWriter, r *http.Request) {
	pid, err := types.ProposalIDFromString(chi.URLParam(r, ProposalURLParam))
	if err != nil {
		ErrMalformedProposalID.WithErr(err).Write(w)
		return
	}
	nullifier, err := types.HexStringToHexBytes(chi.URLParam(r, NullifierURLParam))
	if err != nil {
		ErrMalformedNullifier.WithErr(err).Write(w)
		return
	}
	if len(nullifier) != types.NullifierSize {
		ErrMalformedNullifier.Withf("nullifier must be %d bytes", types.NullifierSize).Write(w)
		return
	}

	record, err := a.ledger.VoteRecord(pid, nullifier)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, voteResponse(record))
}

// newReveal discloses the choice and secret of a previously cast vote.
// POST /reveals
func (a *API) newReveal(w http.ResponseWriter, r *http.Request) {
	req := &RevealRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if len(req.Nullifier) != types.NullifierSize {
		ErrMalformedNullifier.Withf("nullifier must be %d bytes", types.NullifierSize).Write(w)
		return
	}

	results, err := a.ledger.RevealVote(req.ProposalID, req.Nullifier, req.Choice, req.VoterSecret)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &ResultsResponse{
		ProposalID:    results.ProposalID,
		Tallies:       results.Tallies,
		TotalRevealed: results.TotalRevealed(),
		IsFinalized:   results.IsFinalized,
	})
}

func voteResponse(record *types.VoteRecord) *VoteResponse {
	return &VoteResponse{
		ProposalID:     record.ProposalID,
		Nullifier:      record.Nullifier,
		VoteCommitment: record.VoteCommitment,
		Timestamp:      record.Timestamp,
		IsRevealed:     record.IsRevealed,
		RevealedChoice: record.RevealedChoice,
	}
}
