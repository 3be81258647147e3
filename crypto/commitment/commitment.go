// Package commitment implements the fixed commitment and nullifier hash of
// the voting protocol, based on the Poseidon hash over the BN254 scalar
// field. The proof producer computes the same values inside the circuit, so
// both sides must agree on this construction or every reveal will fail.
package commitment

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/vocdoni/psephos/types"
)

// VoteCommitment computes the hiding, binding commitment to a vote choice:
// Poseidon(choice, secret, proposalID). The result is encoded big-endian,
// left-padded to 32 bytes.
func VoteCommitment(choice uint8, secret []byte, pid types.ProposalID) (types.HexBytes, error) {
	h, err := poseidon.Hash([]*big.Int{
		new(big.Int).SetUint64(uint64(choice)),
		secretToField(secret),
		pid.BigInt(),
	})
	if err != nil {
		return nil, fmt.Errorf("poseidon vote commitment: %w", err)
	}
	return types.HexBytes(h.Bytes()).LeftPad(types.CommitmentSize), nil
}

// Nullifier computes the one-time-use nullifier of a voter for a proposal:
// Poseidon(secret, proposalID). The result is encoded big-endian,
// left-padded to 32 bytes.
func Nullifier(secret []byte, pid types.ProposalID) (types.HexBytes, error) {
	h, err := poseidon.Hash([]*big.Int{
		secretToField(secret),
		pid.BigInt(),
	})
	if err != nil {
		return nil, fmt.Errorf("poseidon nullifier: %w", err)
	}
	return types.HexBytes(h.Bytes()).LeftPad(types.NullifierSize), nil
}

// secretToField reduces an arbitrary byte secret into the Poseidon field.
// Poseidon rejects inputs >= the field modulus, and voter secrets are opaque
// 32-byte values which may exceed it.
func secretToField(secret []byte) *big.Int {
	return new(big.Int).Mod(new(big.Int).SetBytes(secret), constants.Q)
}
