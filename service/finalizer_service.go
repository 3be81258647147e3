package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/psephos/ballot"
	"github.com/vocdoni/psephos/finalizer"
	"github.com/vocdoni/psephos/log"
)

// FinalizerService represents a service that handles the finalization of
// proposals based on their end time or on-demand.
type FinalizerService struct {
	*finalizer.Finalizer
	cancel context.CancelFunc
}

// NewFinalizer creates a new finalizer service instance acting as the given
// authority.
func NewFinalizer(ledger *ballot.Ledger, authority common.Address) *FinalizerService {
	return &FinalizerService{
		Finalizer: finalizer.New(ledger, authority, nil),
	}
}

// Start begins the finalizer service. If monitorInterval is 0, periodic
// monitoring is disabled and proposals will only be finalized on-demand. It
// returns an error if the service is already running.
func (fs *FinalizerService) Start(ctx context.Context, monitorInterval time.Duration) error {
	if fs.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	fs.cancel = cancel

	fs.Finalizer.Start(ctx, monitorInterval)

	log.Infow("finalizer service started")
	return nil
}

// Stop halts the finalizer service.
func (fs *FinalizerService) Stop() {
	if fs.cancel != nil {
		fs.cancel()
		fs.cancel = nil

		// Close waits for the finalizer goroutines to exit before resources
		// like the database are closed.
		if fs.Finalizer != nil {
			fs.Close()
		}

		log.Infow("finalizer service stopped")
	}
}
