package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/psephos/balance"
	"github.com/vocdoni/psephos/ballot"
	"github.com/vocdoni/psephos/db"
	"github.com/vocdoni/psephos/db/pebbledb"
	"github.com/vocdoni/psephos/storage"
	"github.com/vocdoni/psephos/types"
)

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(_, _ []byte) error { return nil }

func TestFinalizerService(t *testing.T) {
	c := qt.New(t)
	database, err := pebbledb.New(db.Options{Path: filepath.Join(t.TempDir(), "service")})
	c.Assert(err, qt.IsNil)
	stg := storage.New(database)
	defer func() { _ = stg.Close() }()

	authority := common.HexToAddress("0x1111111111111111111111111111111111111111")
	ledger := ballot.New(stg, acceptAllVerifier{}, balance.NewInMemory(), nil)

	// a proposal whose window is already over by the time the monitor runs
	_, _, err = ledger.CreateProposal(authority, 1, "short lived", []string{"Yes", "No"},
		common.Address{}, 0, time.Millisecond)
	c.Assert(err, qt.IsNil)
	time.Sleep(5 * time.Millisecond)

	fs := NewFinalizer(ledger, authority)
	c.Assert(fs.Start(context.Background(), 0), qt.IsNil)
	c.Assert(fs.Start(context.Background(), 0), qt.IsNotNil)
	defer fs.Stop()

	fs.OndemandCh <- types.ProposalID(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := fs.WaitUntilFinalized(ctx, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(results.IsFinalized, qt.IsTrue)
}
