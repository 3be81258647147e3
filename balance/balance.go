// Package balance defines the boundary to the credential balance source
// used for the independent eligibility check, with an ERC-20 adapter over a
// web3 RPC endpoint and an in-memory implementation for tests and local
// deployments.
package balance

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Source reads the credential balance of a holder. The token address is the
// opaque credential reference stored in the proposal. Read-only from the
// node's perspective.
type Source interface {
	BalanceOf(ctx context.Context, holder, token common.Address) (*big.Int, error)
}

// InMemory is a Source backed by a map, safe for concurrent use.
type InMemory struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*big.Int // token -> holder -> balance
}

var _ Source = (*InMemory)(nil)

// NewInMemory returns an empty in-memory balance source.
func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

// Set assigns the balance of holder for token.
func (s *InMemory) Set(holder, token common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holders, ok := s.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		s.balances[token] = holders
	}
	holders[holder] = new(big.Int).Set(amount)
}

// BalanceOf implements Source. Unknown holders have a zero balance.
func (s *InMemory) BalanceOf(_ context.Context, holder, token common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if amount, ok := s.balances[token][holder]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}
