package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// balanceOfSelector is the 4-byte selector of the ERC-20 balanceOf(address)
// method.
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// ERC20 is a Source reading ERC-20 token balances from a web3 RPC endpoint.
type ERC20 struct {
	client *ethclient.Client
}

var _ Source = (*ERC20)(nil)

// NewERC20 dials the given web3 RPC endpoint.
func NewERC20(ctx context.Context, rpcURL string) (*ERC20, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial web3 endpoint: %w", err)
	}
	return &ERC20{client: client}, nil
}

// BalanceOf implements Source with an eth_call of balanceOf(holder) on the
// token contract, at the latest block.
func (s *ERC20) BalanceOf(ctx context.Context, holder, token common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(holder.Bytes(), 32)...)

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("balanceOf returned %d bytes, expected 32", len(out))
	}
	return new(big.Int).SetBytes(out), nil
}

// Close releases the underlying RPC client.
func (s *ERC20) Close() {
	s.client.Close()
}
