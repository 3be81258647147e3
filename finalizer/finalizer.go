// Package finalizer runs the creator-side finalization monitor. A node
// operator that creates proposals can let the finalizer freeze them once
// their voting window closes, instead of calling the finalize operation by
// hand.
package finalizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/psephos/ballot"
	"github.com/vocdoni/psephos/log"
	"github.com/vocdoni/psephos/types"
)

// Finalizer finalizes proposals created by its authority once their voting
// window has closed. Proposals can be queued explicitly on OndemandCh or
// picked up by the periodic monitor.
type Finalizer struct {
	ledger     *ballot.Ledger
	authority  common.Address
	clock      ballot.Clock
	OndemandCh chan types.ProposalID
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates a new Finalizer acting as the given authority. A nil clock
// defaults to the system clock. The context is created in Start to avoid
// premature cancellation.
func New(ledger *ballot.Ledger, authority common.Address, clock ballot.Clock) *Finalizer {
	if clock == nil {
		clock = ballot.SystemClock
	}
	return &Finalizer{
		ledger:     ledger,
		authority:  authority,
		clock:      clock,
		OndemandCh: make(chan types.ProposalID, 10),
	}
}

// Start launches the on-demand worker and, if monitorInterval is positive,
// the periodic monitor that scans for ended proposals owned by the
// authority.
func (f *Finalizer) Start(ctx context.Context, monitorInterval time.Duration) {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case pid := <-f.OndemandCh:
				if err := f.finalize(pid); err != nil {
					log.Errorw(err, fmt.Sprintf("finalizing proposal %s", pid))
				}
			case <-f.ctx.Done():
				return
			}
		}
	}()

	if monitorInterval > 0 {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			ticker := time.NewTicker(monitorInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					f.finalizeEnded(f.clock.Now())
				case <-f.ctx.Done():
					return
				}
			}
		}()
	}

	log.Infow("finalizer started", "authority", f.authority.Hex(), "interval", monitorInterval.String())
}

// Close stops the finalizer and waits for its goroutines to exit. Call it
// before closing the storage.
func (f *Finalizer) Close() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	f.cancel = nil

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-f.OndemandCh:
			case <-time.After(100 * time.Millisecond):
				close(done)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		log.Warnw("timeout while draining finalizer channel")
	}

	waitCh := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		log.Infow("finalizer closed")
	case <-time.After(5 * time.Second):
		log.Warnw("some finalizer goroutines did not exit cleanly")
	}
}

// finalizeEnded queues every proposal owned by the authority whose voting
// window closed before now and that is not finalized yet.
func (f *Finalizer) finalizeEnded(now time.Time) {
	pids, err := f.ledger.ListProposals()
	if err != nil {
		log.Errorw(err, "could not list proposals")
		return
	}

	for _, pid := range pids {
		proposal, err := f.ledger.Proposal(pid)
		if err != nil {
			log.Errorw(err, fmt.Sprintf("could not retrieve proposal %s", pid))
			continue
		}
		if proposal.Creator != f.authority {
			continue
		}
		if !proposal.IsFinalized && proposal.Ended(now) {
			log.Debugw("found ended proposal to finalize", "id", pid.String())
			f.OndemandCh <- pid
		}
	}
}

// finalize freezes a single proposal. A proposal that got finalized between
// the scan and this call is not an error.
func (f *Finalizer) finalize(pid types.ProposalID) error {
	_, _, err := f.ledger.FinalizeProposal(f.authority, pid)
	if errors.Is(err, ballot.ErrProposalFinalized) {
		return nil
	}
	return err
}

// WaitUntilFinalized blocks until the proposal is finalized and returns its
// frozen results. Without a deadline on ctx a 60 second timeout applies.
func (f *Finalizer) WaitUntilFinalized(ctx context.Context, pid types.ProposalID) (*types.Results, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	log.Debugw("waiting for proposal to be finalized", "id", pid.String())
	for {
		select {
		case <-ticker.C:
			results, err := f.ledger.Results(pid)
			if err != nil {
				return nil, fmt.Errorf("could not retrieve results for proposal %s: %w", pid, err)
			}
			if results.IsFinalized {
				return results, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for proposal %s to be finalized: %w", pid, ctx.Err())
		case <-f.ctx.Done():
			return nil, fmt.Errorf("finalizer is shutting down while waiting for proposal %s", pid)
		}
	}
}
