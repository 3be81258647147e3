package verifier

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	qt "github.com/frankban/quicktest"
)

type equalityCircuit struct {
	X frontend.Variable `gnark:",public"`
	Y frontend.Variable `gnark:",public"`
}

func (c *equalityCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(c.X, c.Y)
	return nil
}

// setupProof compiles a minimal circuit and produces a serialized verifying
// key, proof and public witness for it.
func setupProof(c *qt.C) (vkBytes, proofBytes, witnessBytes []byte) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &equalityCircuit{})
	c.Assert(err, qt.IsNil)
	pk, vk, err := groth16.Setup(ccs)
	c.Assert(err, qt.IsNil)

	w, err := frontend.NewWitness(&equalityCircuit{X: 3, Y: 3}, ecc.BN254.ScalarField())
	c.Assert(err, qt.IsNil)
	proof, err := groth16.Prove(ccs, pk, w)
	c.Assert(err, qt.IsNil)
	pub, err := w.Public()
	c.Assert(err, qt.IsNil)

	var vkBuf, proofBuf bytes.Buffer
	_, err = vk.WriteTo(&vkBuf)
	c.Assert(err, qt.IsNil)
	_, err = proof.WriteTo(&proofBuf)
	c.Assert(err, qt.IsNil)
	pubBytes, err := pub.MarshalBinary()
	c.Assert(err, qt.IsNil)
	return vkBuf.Bytes(), proofBuf.Bytes(), pubBytes
}

func TestGroth16Verify(t *testing.T) {
	c := qt.New(t)
	vkBytes, proofBytes, witnessBytes := setupProof(c)

	v, err := NewGroth16(bytes.NewReader(vkBytes))
	c.Assert(err, qt.IsNil)

	c.Assert(v.Verify(proofBytes, witnessBytes), qt.IsNil)

	// a truncated proof must fail at the parse stage
	err = v.Verify(proofBytes[:16], witnessBytes)
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.Error(), qt.Contains, "parse proof")

	// garbage public witness must fail at the parse stage
	err = v.Verify(proofBytes, []byte{0x01, 0x02, 0x03})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.Error(), qt.Contains, "parse public witness")

	// a proof bound to different public inputs must be rejected
	other, err := frontend.NewWitness(&equalityCircuit{X: 4, Y: 4}, ecc.BN254.ScalarField())
	c.Assert(err, qt.IsNil)
	otherPub, err := other.Public()
	c.Assert(err, qt.IsNil)
	otherBytes, err := otherPub.MarshalBinary()
	c.Assert(err, qt.IsNil)
	err = v.Verify(proofBytes, otherBytes)
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.Error(), qt.Contains, "groth16 verification")
}

func TestNewGroth16Errors(t *testing.T) {
	c := qt.New(t)

	// empty reader
	_, err := NewGroth16(bytes.NewReader(nil))
	c.Assert(err, qt.IsNotNil)

	// missing file
	_, err = NewGroth16FromFile(filepath.Join(t.TempDir(), "missing.vk"))
	c.Assert(err, qt.IsNotNil)
}
