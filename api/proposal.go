package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/vocdoni/psephos/types"
)

// newProposal creates a new proposal from the JSON body.
// POST /proposals
func (a *API) newProposal(w http.ResponseWriter, r *http.Request) {
	req := &ProposalRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if !common.IsHexAddress(req.Creator) {
		ErrMalformedAddress.Withf("invalid creator address %q", req.Creator).Write(w)
		return
	}
	if req.CredentialToken != "" && !common.IsHexAddress(req.CredentialToken) {
		ErrMalformedAddress.Withf("invalid credential token address %q", req.CredentialToken).Write(w)
		return
	}

	proposal, _, err := a.ledger.CreateProposal(
		common.HexToAddress(req.Creator),
		req.ProposalID,
		req.Title,
		req.Options,
		common.HexToAddress(req.CredentialToken),
		req.MinThreshold,
		time.Duration(req.VotingPeriod)*time.Second,
	)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, proposalResponse(proposal))
}

// proposal returns the metadata of a proposal.
// GET /proposals/{proposalId}
func (a *API) proposal(w http.ResponseWriter, r *http.Request) {
	pid, err := types.ProposalIDFromString(chi.URLParam(r, ProposalURLParam))
	if err != nil {
		ErrMalformedProposalID.WithErr(err).Write(w)
		return
	}
	proposal, err := a.ledger.Proposal(pid)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, proposalResponse(proposal))
}

// proposalList returns the ids of all stored proposals.
// GET /proposals
func (a *API) proposalList(w http.ResponseWriter, _ *http.Request) {
	pids, err := a.ledger.ListProposals()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ProposalListResponse{Proposals: pids})
}

// proposalResults returns the current reveal tallies of a proposal.
// GET /proposals/{proposalId}/results
func (a *API) proposalResults(w http.ResponseWriter, r *http.Request) {
	pid, err := types.ProposalIDFromString(chi.URLParam(r, ProposalURLParam))
	if err != nil {
		ErrMalformedProposalID.WithErr(err).Write(w)
		return
	}
	results, err := a.ledger.Results(pid)
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

// finalizeProposal freezes a proposal and its results. The authority in the
// body must be the proposal creator.
// POST /proposals/{proposalId}/finalize
func (a *API) finalizeProposal(w http.ResponseWriter, r *http.Request) {
	pid, err := types.ProposalIDFromString(chi.URLParam(r, ProposalURLParam))
	if err != nil {
		ErrMalformedProposalID.WithErr(err).Write(w)
		return
	}
	req := &FinalizeRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if !common.IsHexAddress(req.Authority) {
		ErrMalformedAddress.Withf("invalid authority address %q", req.Authority).Write(w)
		return
	}
	proposal, _, err := a.ledger.FinalizeProposal(common.HexToAddress(req.Authority), pid)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, proposalResponse(proposal))
}

func proposalResponse(p *types.Proposal) *ProposalResponse {
	return &ProposalResponse{
		ProposalID:      p.ID,
		Creator:         p.Creator.Hex(),
		Title:           p.Title,
		Options:         p.Options,
		CredentialToken: p.CredentialToken.Hex(),
		MinThreshold:    p.MinThreshold,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		VoteCount:       p.VoteCount,
		IsFinalized:     p.IsFinalized,
	}
}
