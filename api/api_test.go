package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/psephos/balance"
	"github.com/vocdoni/psephos/ballot"
	"github.com/vocdoni/psephos/ballotproof"
	"github.com/vocdoni/psephos/crypto/commitment"
	"github.com/vocdoni/psephos/db"
	"github.com/vocdoni/psephos/db/pebbledb"
	"github.com/vocdoni/psephos/storage"
	"github.com/vocdoni/psephos/types"
	"github.com/vocdoni/psephos/util"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(_, _ []byte) error { return nil }

var (
	testCreator = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testVoter   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type testAPI struct {
	api      *API
	clock    *fakeClock
	balances *balance.InMemory
}

func newTestAPI(t *testing.T) *testAPI {
	database, err := pebbledb.New(db.Options{Path: filepath.Join(t.TempDir(), "api")})
	qt.Assert(t, err, qt.IsNil)
	stg := storage.New(database)
	t.Cleanup(func() { _ = stg.Close() })

	clock := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	balances := balance.NewInMemory()
	a := &API{ledger: ballot.New(stg, acceptAllVerifier{}, balances, clock)}
	a.initRouter()
	return &testAPI{api: a, clock: clock, balances: balances}
}

// request performs an HTTP request against the router and decodes the JSON
// response into out (if not nil). Returns the status code.
func (ta *testAPI) request(t *testing.T, method, path string, body, out any) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		qt.Assert(t, err, qt.IsNil)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ta.api.Router().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		qt.Assert(t, json.NewDecoder(rec.Body).Decode(out), qt.IsNil)
	}
	return rec.Code
}

func (ta *testAPI) createProposal(t *testing.T, pid types.ProposalID) {
	code := ta.request(t, http.MethodPost, ProposalsEndpoint, &ProposalRequest{
		ProposalID:      pid,
		Creator:         testCreator.Hex(),
		Title:           "Upgrade the protocol",
		Options:         []string{"Yes", "No", "Abstain"},
		CredentialToken: testToken.Hex(),
		MinThreshold:    50,
		VotingPeriod:    3600,
	}, nil)
	qt.Assert(t, code, qt.Equals, http.StatusOK)
}

func voteRequest(c *qt.C, pid types.ProposalID, choice uint8, secret []byte) *VoteRequest {
	nullifier, err := commitment.Nullifier(secret, pid)
	c.Assert(err, qt.IsNil)
	voteCommitment, err := commitment.VoteCommitment(choice, secret, pid)
	c.Assert(err, qt.IsNil)
	witness, err := (&ballotproof.PublicWitness{
		MinThreshold:   big.NewInt(50),
		ProposalID:     pid.BigInt(),
		VoteCommitment: voteCommitment,
		Nullifier:      nullifier,
	}).Encode()
	c.Assert(err, qt.IsNil)
	return &VoteRequest{
		ProposalID:     pid,
		Voter:          testVoter.Hex(),
		Nullifier:      nullifier,
		VoteCommitment: voteCommitment,
		Proof:          util.RandomBytes(ballotproof.ProofSize),
		PublicWitness:  witness,
	}
}

func TestPing(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	code := ta.request(t, http.MethodGet, PingEndpoint, nil, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
}

func TestProposalEndpoints(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	ta.createProposal(t, 1)

	// duplicate id
	code := ta.request(t, http.MethodPost, ProposalsEndpoint, &ProposalRequest{
		ProposalID:   1,
		Creator:      testCreator.Hex(),
		Title:        "other",
		Options:      []string{"Yes", "No"},
		VotingPeriod: 3600,
	}, nil)
	c.Assert(code, qt.Equals, http.StatusConflict)

	// bad creator address
	code = ta.request(t, http.MethodPost, ProposalsEndpoint, &ProposalRequest{
		ProposalID:   2,
		Creator:      "not-an-address",
		Title:        "other",
		Options:      []string{"Yes", "No"},
		VotingPeriod: 3600,
	}, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	// invalid parameters
	code = ta.request(t, http.MethodPost, ProposalsEndpoint, &ProposalRequest{
		ProposalID:   2,
		Creator:      testCreator.Hex(),
		Title:        "only one option",
		Options:      []string{"Yes"},
		VotingPeriod: 3600,
	}, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	var proposal ProposalResponse
	code = ta.request(t, http.MethodGet,
		EndpointWithParam(ProposalEndpoint, ProposalURLParam, "1"), nil, &proposal)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(proposal.Title, qt.Equals, "Upgrade the protocol")
	c.Assert(proposal.Options, qt.HasLen, 3)
	c.Assert(proposal.IsFinalized, qt.IsFalse)

	code = ta.request(t, http.MethodGet,
		EndpointWithParam(ProposalEndpoint, ProposalURLParam, "99"), nil, nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	code = ta.request(t, http.MethodGet,
		EndpointWithParam(ProposalEndpoint, ProposalURLParam, "bogus"), nil, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	var list ProposalListResponse
	code = ta.request(t, http.MethodGet, ProposalsEndpoint, nil, &list)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(list.Proposals, qt.DeepEquals, []types.ProposalID{1})
}

func TestVoteAndRevealEndpoints(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	ta.createProposal(t, 1)
	ta.balances.Set(testVoter, testToken, big.NewInt(100))

	secret := []byte("voter secret")
	vote := voteRequest(c, 1, 1, secret)

	var record VoteResponse
	code := ta.request(t, http.MethodPost, VotesEndpoint, vote, &record)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(record.IsRevealed, qt.IsFalse)

	// double vote with the same nullifier
	code = ta.request(t, http.MethodPost, VotesEndpoint, vote, nil)
	c.Assert(code, qt.Equals, http.StatusConflict)

	// fetch the vote record back
	votePath := EndpointWithParam(VoteEndpoint, ProposalURLParam, "1")
	votePath = EndpointWithParam(votePath, NullifierURLParam, vote.Nullifier.Hex())
	code = ta.request(t, http.MethodGet, votePath, nil, &record)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(record.Nullifier, qt.DeepEquals, vote.Nullifier)

	// reveal before the window closes
	reveal := &RevealRequest{ProposalID: 1, Nullifier: vote.Nullifier, Choice: 1, VoterSecret: secret}
	code = ta.request(t, http.MethodPost, RevealsEndpoint, reveal, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	ta.clock.now = ta.clock.now.Add(2 * time.Hour)

	var results ResultsResponse
	code = ta.request(t, http.MethodPost, RevealsEndpoint, reveal, &results)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(results.Tallies, qt.DeepEquals, []uint64{0, 1, 0})

	// second reveal of the same vote
	code = ta.request(t, http.MethodPost, RevealsEndpoint, reveal, nil)
	c.Assert(code, qt.Equals, http.StatusConflict)

	code = ta.request(t, http.MethodGet,
		EndpointWithParam(ProposalResultsEndpoint, ProposalURLParam, "1"), nil, &results)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(results.TotalRevealed, qt.Equals, uint64(1))
}

func TestFinalizeEndpoint(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	ta.createProposal(t, 1)
	finalizePath := EndpointWithParam(ProposalFinalizeEndpoint, ProposalURLParam, "1")

	// not the creator
	code := ta.request(t, http.MethodPost, finalizePath,
		&FinalizeRequest{Authority: testVoter.Hex()}, nil)
	c.Assert(code, qt.Equals, http.StatusForbidden)

	// voting still open
	code = ta.request(t, http.MethodPost, finalizePath,
		&FinalizeRequest{Authority: testCreator.Hex()}, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	ta.clock.now = ta.clock.now.Add(2 * time.Hour)

	var proposal ProposalResponse
	code = ta.request(t, http.MethodPost, finalizePath,
		&FinalizeRequest{Authority: testCreator.Hex()}, &proposal)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(proposal.IsFinalized, qt.IsTrue)

	code = ta.request(t, http.MethodPost, finalizePath,
		&FinalizeRequest{Authority: testCreator.Hex()}, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
}

func TestVoteEndpointValidation(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	ta.createProposal(t, 1)
	ta.balances.Set(testVoter, testToken, big.NewInt(100))

	vote := voteRequest(c, 1, 0, []byte("secret"))

	// truncated proof
	bad := *vote
	bad.Proof = bad.Proof[:ballotproof.ProofSize-1]
	code := ta.request(t, http.MethodPost, VotesEndpoint, &bad, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	// witness bound to another proposal
	other := voteRequest(c, 1, 0, []byte("secret"))
	witness, err := (&ballotproof.PublicWitness{
		MinThreshold:   big.NewInt(50),
		ProposalID:     big.NewInt(2),
		VoteCommitment: other.VoteCommitment,
		Nullifier:      other.Nullifier,
	}).Encode()
	c.Assert(err, qt.IsNil)
	other.PublicWitness = witness
	code = ta.request(t, http.MethodPost, VotesEndpoint, other, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	// voter below the threshold
	ta.balances.Set(testVoter, testToken, big.NewInt(10))
	code = ta.request(t, http.MethodPost, VotesEndpoint, vote, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	// malformed body
	req := httptest.NewRequest(http.MethodPost, VotesEndpoint, bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	ta.api.Router().ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	// unknown vote record
	path := EndpointWithParam(VoteEndpoint, ProposalURLParam, "1")
	path = EndpointWithParam(path, NullifierURLParam, fmt.Sprintf("0x%064d", 0))
	code = ta.request(t, http.MethodGet, path, nil, nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
}
