package ballot

import "errors"

// Every operation of the ledger fails with one of the following sentinel
// errors, possibly wrapped with context. Callers discriminate with
// errors.Is; there are no stringly-typed catch-alls.
var (
	// Validation errors.
	ErrTooFewOptions       = errors.New("too few voting options")
	ErrTooManyOptions      = errors.New("too many voting options")
	ErrEmptyTitle          = errors.New("proposal title is empty")
	ErrTitleTooLong        = errors.New("proposal title is too long")
	ErrOptionTooLong       = errors.New("voting option is too long")
	ErrInvalidVotingPeriod = errors.New("invalid voting period")
	ErrInvalidChoice       = errors.New("invalid vote choice")
	ErrInvalidProofFormat  = errors.New("invalid proof format")

	// Authorization errors.
	ErrUnauthorized = errors.New("unauthorized")

	// State errors.
	ErrVotingNotActive   = errors.New("voting is not active")
	ErrVotingNotEnded    = errors.New("voting has not ended")
	ErrAlreadyRevealed   = errors.New("vote already revealed")
	ErrProposalFinalized = errors.New("proposal already finalized")
	ErrProposalExists    = errors.New("proposal id already exists")

	// Integrity errors.
	ErrPublicInputMismatch = errors.New("public input mismatch")
	ErrCommitmentMismatch  = errors.New("commitment mismatch")
	ErrDuplicateNullifier  = errors.New("duplicate nullifier")

	// External collaborator errors.
	ErrVerificationFailed  = errors.New("proof verification failed")
	ErrInsufficientBalance = errors.New("insufficient credential balance")
	ErrBalanceUnavailable  = errors.New("credential balance unavailable")

	// ErrNotFound is returned when the referenced proposal or vote record
	// does not exist.
	ErrNotFound = errors.New("not found")
)
