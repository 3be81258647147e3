//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound          = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody             = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedProposalID       = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed proposal ID")}
	ErrProposalNotFound          = Error{Code: 40004, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("proposal not found")}
	ErrMalformedNullifier        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed nullifier")}
	ErrMalformedAddress          = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrInvalidProposalParams     = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proposal parameters")}
	ErrProposalAlreadyExists     = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("proposal already exists")}
	ErrInvalidEligibilityProof   = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid eligibility proof")}
	ErrPublicInputMismatch       = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("public inputs do not match the submitted vote")}
	ErrNullifierAlreadyUsed      = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nullifier already used")}
	ErrProposalNotAcceptingVotes = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("proposal is not accepting votes")}
	ErrVotingNotEnded            = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("voting period has not ended")}
	ErrVoteAlreadyRevealed       = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("vote already revealed")}
	ErrCommitmentMismatch        = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("revealed values do not match the commitment")}
	ErrUnauthorized              = Error{Code: 40016, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("unauthorized")}
	ErrProposalFinalized         = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("proposal is finalized")}
	ErrInsufficientBalance       = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("credential balance below threshold")}
	ErrInvalidChoice             = Error{Code: 40019, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid vote choice")}
	ErrProofVerificationFailed   = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("proof verification failed")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrBalanceSourceUnavailable   = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("credential balance source unavailable")}
)
