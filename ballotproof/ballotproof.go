// Package ballotproof defines the wire contract of an eligibility proof and
// its public witness. The proof is an opaque Groth16/BN254 blob of fixed
// size; the public witness follows the gnark binary encoding: a 12-byte
// header (number of public inputs, number of secret inputs, vector length)
// followed by one big-endian 32-byte scalar field element per public input.
//
// The circuit exposes exactly four public inputs, in this order:
// minThreshold, proposalID, voteCommitment, nullifier.
package ballotproof

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/vocdoni/psephos/types"
)

const (
	// ProofSize is the exact size in bytes of a serialized Groth16 proof
	// for the eligibility circuit.
	ProofSize = 388
	// NumPublicInputs is the number of public inputs of the circuit.
	NumPublicInputs = 4
	// FieldElementSize is the size in bytes of a BN254 scalar field element.
	FieldElementSize = fr.Bytes
	// witnessHeaderSize covers nbPublic (4), nbSecret (4) and the witness
	// vector length (4), all big-endian uint32.
	witnessHeaderSize = 12
	// PublicWitnessSize is the exact size in bytes of an encoded public
	// witness.
	PublicWitnessSize = witnessHeaderSize + NumPublicInputs*FieldElementSize
)

// PublicWitness holds the decoded public inputs of an eligibility proof, in
// circuit order. MinThreshold and ProposalID are numeric values; the vote
// commitment and nullifier stay as 32-byte opaque values.
type PublicWitness struct {
	MinThreshold   *big.Int
	ProposalID     *big.Int
	VoteCommitment types.HexBytes
	Nullifier      types.HexBytes
}

// CheckProof validates the structural shape of an opaque proof blob.
func CheckProof(proof []byte) error {
	if len(proof) != ProofSize {
		return fmt.Errorf("proof is %d bytes, expected %d", len(proof), ProofSize)
	}
	return nil
}

// DecodePublicWitness decodes and validates a public witness blob. Every
// field element must be canonical (strictly below the BN254 scalar field
// modulus).
func DecodePublicWitness(data []byte) (*PublicWitness, error) {
	if len(data) != PublicWitnessSize {
		return nil, fmt.Errorf("public witness is %d bytes, expected %d", len(data), PublicWitnessSize)
	}
	if nbPublic := binary.BigEndian.Uint32(data[0:4]); nbPublic != NumPublicInputs {
		return nil, fmt.Errorf("public witness declares %d public inputs, expected %d", nbPublic, NumPublicInputs)
	}
	if nbSecret := binary.BigEndian.Uint32(data[4:8]); nbSecret != 0 {
		return nil, fmt.Errorf("public witness declares %d secret inputs, expected 0", nbSecret)
	}
	if vecLen := binary.BigEndian.Uint32(data[8:12]); vecLen != NumPublicInputs {
		return nil, fmt.Errorf("public witness vector has %d elements, expected %d", vecLen, NumPublicInputs)
	}

	elements := make([]*big.Int, NumPublicInputs)
	for i := range elements {
		offset := witnessHeaderSize + i*FieldElementSize
		chunk := data[offset : offset+FieldElementSize]
		var e fr.Element
		if err := e.SetBytesCanonical(chunk); err != nil {
			return nil, fmt.Errorf("public input %d is not a canonical field element: %w", i, err)
		}
		elements[i] = e.BigInt(new(big.Int))
	}

	return &PublicWitness{
		MinThreshold:   elements[0],
		ProposalID:     elements[1],
		VoteCommitment: types.HexBytes(elements[2].Bytes()).LeftPad(types.CommitmentSize),
		Nullifier:      types.HexBytes(elements[3].Bytes()).LeftPad(types.NullifierSize),
	}, nil
}

// Encode serializes the public witness into the gnark binary encoding. It is
// the inverse of DecodePublicWitness and is what a proof producer submits
// alongside the proof.
func (w *PublicWitness) Encode() ([]byte, error) {
	out := make([]byte, 0, PublicWitnessSize)
	out = binary.BigEndian.AppendUint32(out, NumPublicInputs)
	out = binary.BigEndian.AppendUint32(out, 0)
	out = binary.BigEndian.AppendUint32(out, NumPublicInputs)

	for i, v := range []*big.Int{
		w.MinThreshold,
		w.ProposalID,
		w.VoteCommitment.BigInt(),
		w.Nullifier.BigInt(),
	} {
		var e fr.Element
		if v == nil {
			return nil, fmt.Errorf("public input %d is nil", i)
		}
		if v.Sign() < 0 || v.BitLen() > fr.Bits {
			return nil, fmt.Errorf("public input %d out of field range", i)
		}
		e.SetBigInt(v)
		b := e.Bytes()
		out = append(out, b[:]...)
	}
	return out, nil
}
