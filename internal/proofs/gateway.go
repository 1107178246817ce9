// gateway.go - Proof gateway: named verifiers behind one pass/fail call.
//
// The orchestrator builds an ordered public-input vector per operation and
// hands it here together with the opaque proof blob. The gateway resolves
// the verifier registered under the operation name and returns a hard
// error on any failure; there is no partial trust.

package proofs

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidProof is the hard stop for a failed verification.
	ErrInvalidProof = errors.New("proofs: invalid proof")
	// ErrUnknownOperation fires for an operation name with no verifier.
	ErrUnknownOperation = errors.New("proofs: unknown operation")
)

// Verifier checks one proof against its ordered public inputs. The input
// order is part of the operation's wire contract and never changes.
type Verifier interface {
	Verify(proof []byte, publicInputs []*big.Int) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(proof []byte, publicInputs []*big.Int) error

func (f VerifierFunc) Verify(proof []byte, publicInputs []*big.Int) error {
	return f(proof, publicInputs)
}

// Gateway is the verifier registry, keyed by operation name.
type Gateway struct {
	verifiers map[string]Verifier
}

// NewGateway returns an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{verifiers: make(map[string]Verifier)}
}

// Register binds a verifier to an operation name, replacing any previous
// binding. Registration happens at wiring time, before operations flow.
func (g *Gateway) Register(operation string, v Verifier) {
	g.verifiers[operation] = v
}

// Verify resolves the named verifier and runs it. A missing verifier and
// a failed proof are both hard errors.
func (g *Gateway) Verify(operation string, proof []byte, publicInputs []*big.Int) error {
	v, ok := g.verifiers[operation]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	if err := v.Verify(proof, publicInputs); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProof, operation, err)
	}
	return nil
}
