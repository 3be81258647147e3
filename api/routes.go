package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Proposal endpoints
	ProposalURLParam         = "proposalId"                                          // URL parameter for proposal ID
	ProposalsEndpoint        = "/proposals"                                          // GET: List proposals, POST: Create proposal
	ProposalEndpoint         = ProposalsEndpoint + "/{" + ProposalURLParam + "}"     // GET: Get proposal info
	ProposalResultsEndpoint  = ProposalEndpoint + "/results"                         // GET: Get proposal tallies
	ProposalFinalizeEndpoint = ProposalEndpoint + "/finalize"                        // POST: Finalize proposal

	// Vote endpoints
	VotesEndpoint     = "/votes"                                                                        // POST: Cast a vote
	NullifierURLParam = "nullifier"                                                                     // URL parameter for vote nullifier
	VoteEndpoint      = VotesEndpoint + "/{" + ProposalURLParam + "}/{" + NullifierURLParam + "}"       // GET: Get vote record

	// Reveal endpoints
	RevealsEndpoint = "/reveals" // POST: Reveal a vote
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
}
