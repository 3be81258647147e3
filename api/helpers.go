package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vocdoni/psephos/ballot"
	"github.com/vocdoni/psephos/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// ledgerError translates a ballot ledger error into the coded API error that
// should reach the client.
func ledgerError(err error) Error {
	switch {
	case errors.Is(err, ballot.ErrNotFound):
		return ErrProposalNotFound.WithErr(err)
	case errors.Is(err, ballot.ErrProposalExists):
		return ErrProposalAlreadyExists.WithErr(err)
	case errors.Is(err, ballot.ErrEmptyTitle),
		errors.Is(err, ballot.ErrTitleTooLong),
		errors.Is(err, ballot.ErrTooFewOptions),
		errors.Is(err, ballot.ErrTooManyOptions),
		errors.Is(err, ballot.ErrOptionTooLong),
		errors.Is(err, ballot.ErrInvalidVotingPeriod):
		return ErrInvalidProposalParams.WithErr(err)
	case errors.Is(err, ballot.ErrVotingNotActive):
		return ErrProposalNotAcceptingVotes.WithErr(err)
	case errors.Is(err, ballot.ErrInvalidProofFormat):
		return ErrInvalidEligibilityProof.WithErr(err)
	case errors.Is(err, ballot.ErrPublicInputMismatch):
		return ErrPublicInputMismatch.WithErr(err)
	case errors.Is(err, ballot.ErrInsufficientBalance):
		return ErrInsufficientBalance.WithErr(err)
	case errors.Is(err, ballot.ErrBalanceUnavailable):
		return ErrBalanceSourceUnavailable.WithErr(err)
	case errors.Is(err, ballot.ErrVerificationFailed):
		return ErrProofVerificationFailed.WithErr(err)
	case errors.Is(err, ballot.ErrDuplicateNullifier):
		return ErrNullifierAlreadyUsed.WithErr(err)
	case errors.Is(err, ballot.ErrVotingNotEnded):
		return ErrVotingNotEnded.WithErr(err)
	case errors.Is(err, ballot.ErrAlreadyRevealed):
		return ErrVoteAlreadyRevealed.WithErr(err)
	case errors.Is(err, ballot.ErrInvalidChoice):
		return ErrInvalidChoice.WithErr(err)
	case errors.Is(err, ballot.ErrCommitmentMismatch):
		return ErrCommitmentMismatch.WithErr(err)
	case errors.Is(err, ballot.ErrUnauthorized):
		return ErrUnauthorized.WithErr(err)
	case errors.Is(err, ballot.ErrProposalFinalized):
		return ErrProposalFinalized.WithErr(err)
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
