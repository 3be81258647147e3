package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/psephos/balance"
	"github.com/vocdoni/psephos/ballot"
	"github.com/vocdoni/psephos/db"
	"github.com/vocdoni/psephos/db/pebbledb"
	"github.com/vocdoni/psephos/log"
	"github.com/vocdoni/psephos/service"
	"github.com/vocdoni/psephos/storage"
	"github.com/vocdoni/psephos/verifier"
)

// Services holds all the running services
type Services struct {
	Storage   *storage.Storage
	Balances  *balance.ERC20
	Ledger    *ballot.Ledger
	API       *service.APIService
	Finalizer *service.FinalizerService
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting psephos-node", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	log.Infow("initializing storage", "datadir", cfg.Datadir)
	database, err := pebbledb.New(db.Options{Path: filepath.Join(cfg.Datadir, "ledger")})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(database)

	log.Infow("loading verification key", "path", cfg.VKey)
	vrf, err := verifier.NewGroth16FromFile(cfg.VKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification key: %w", err)
	}

	var balances balance.Source
	if cfg.Web3.Rpc != "" {
		log.Infow("using ERC-20 credential balance source", "rpc", cfg.Web3.Rpc)
		services.Balances, err = balance.NewERC20(ctx, cfg.Web3.Rpc)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize web3 client: %w", err)
		}
		balances = services.Balances
	} else {
		log.Warn("no web3 rpc endpoint provided, using an empty in-memory balance source")
		balances = balance.NewInMemory()
	}

	services.Ledger = ballot.New(services.Storage, vrf, balances, nil)

	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API = service.NewAPI(services.Ledger, cfg.API.Host, cfg.API.Port, false)
	if err := services.API.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}

	if cfg.Finalizer.Authority != "" {
		log.Infow("starting finalizer service",
			"authority", cfg.Finalizer.Authority, "interval", cfg.Finalizer.Interval.String())
		services.Finalizer = service.NewFinalizer(services.Ledger,
			common.HexToAddress(cfg.Finalizer.Authority))
		if err := services.Finalizer.Start(ctx, cfg.Finalizer.Interval); err != nil {
			return nil, fmt.Errorf("failed to start finalizer service: %w", err)
		}
	}

	log.Info("psephos-node is running, ready to process votes!")
	return services, nil
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}

	// Stop services in reverse order of startup
	if services.Finalizer != nil {
		services.Finalizer.Stop()
	}
	if services.API != nil {
		services.API.Stop()
	}
	if services.Balances != nil {
		services.Balances.Close()
	}
	if services.Storage != nil {
		if err := services.Storage.Close(); err != nil {
			log.Warnw("failed to close storage", "error", err)
		}
	}
}
