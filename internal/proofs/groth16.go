// groth16.go - gnark-backed verifier adapter.
//
// A Groth16 verifier pairs a verifying key with an assignment builder that
// maps the ordered public-input vector back onto the circuit's public
// fields. The builder is the only circuit-shaped piece; everything else is
// generic unmarshal-and-verify.

package proofs

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

// AssignmentFunc turns an ordered public-input vector into a circuit
// assignment with only the public fields set.
type AssignmentFunc func(publicInputs []*big.Int) (frontend.Circuit, error)

// Groth16 verifies proofs over BN254 against a fixed verifying key.
type Groth16 struct {
	vk     groth16.VerifyingKey
	assign AssignmentFunc
}

// NewGroth16 builds the adapter.
func NewGroth16(vk groth16.VerifyingKey, assign AssignmentFunc) *Groth16 {
	return &Groth16{vk: vk, assign: assign}
}

// Verify implements Verifier.
func (v *Groth16) Verify(proofBytes []byte, publicInputs []*big.Int) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("unmarshal proof: %w", err)
	}
	assignment, err := v.assign(publicInputs)
	if err != nil {
		return fmt.Errorf("build assignment: %w", err)
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}
	return groth16.Verify(proof, v.vk, w)
}
