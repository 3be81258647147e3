// Package verifier defines the boundary to the cryptographic proof
// verifier. The ballot engine depends only on the Verifier interface; a
// concrete adapter exists per proving backend.
package verifier

// Verifier checks an eligibility proof against its encoded public witness.
// A nil return means the proof is cryptographically valid; any error,
// including parse or transport failures, must be treated by the caller as a
// verification failure.
type Verifier interface {
	Verify(proof, publicWitness []byte) error
}
