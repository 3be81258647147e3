package verifier

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// Groth16 verifies Groth16/BN254 proofs produced for the eligibility
// circuit, using a fixed verifying key.
type Groth16 struct {
	vk groth16.VerifyingKey
}

var _ Verifier = (*Groth16)(nil)

// NewGroth16 reads a Groth16/BN254 verifying key from r.
func NewGroth16(r io.Reader) (*Groth16, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return &Groth16{vk: vk}, nil
}

// NewGroth16FromFile loads a Groth16/BN254 verifying key from a file.
func NewGroth16FromFile(path string) (*Groth16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verifying key: %w", err)
	}
	defer func() { _ = f.Close() }()
	return NewGroth16(f)
}

// Verify parses the opaque proof and public witness blobs and checks the
// proof against the verifying key.
func (v *Groth16) Verify(proofBytes, publicWitness []byte) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("parse proof: %w", err)
	}
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("new witness: %w", err)
	}
	if err := w.UnmarshalBinary(publicWitness); err != nil {
		return fmt.Errorf("parse public witness: %w", err)
	}
	if err := groth16.Verify(proof, v.vk, w); err != nil {
		return fmt.Errorf("groth16 verification: %w", err)
	}
	return nil
}
