// hash.go - Injected hash oracle for commitment and nullifier derivation.
//
// The ledger never hashes bytes directly; every derivation goes through a
// Hasher so the proof system's hash can be swapped without touching the
// state-transition code. The default oracle is MiMC over the BN254 scalar
// field, matching the reference circuits.

package note

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/ethereum/go-ethereum/common"
)

// Hasher is the hash oracle consumed by the ledger. Implementations must be
// deterministic and collision-resistant over ordered field-element inputs.
type Hasher interface {
	// Hash absorbs the inputs as field elements, in order, and returns the
	// 32-byte digest. Inputs are reduced into the scalar field first.
	Hash(fields ...*big.Int) common.Hash
}

// MiMC is the default hash oracle: MiMC over the BN254 scalar field, the
// same permutation the reference circuits use in-circuit.
type MiMC struct{}

// Hash implements Hasher.
func (MiMC) Hash(fields ...*big.Int) common.Hash {
	h := mimc.NewMiMC()
	for _, f := range fields {
		var e fr.Element
		e.SetBigInt(f)
		b := e.Bytes()
		h.Write(b[:])
	}
	return common.BytesToHash(h.Sum(nil))
}

// ToField reduces arbitrary bytes into the proof system's scalar field.
// The field is narrower than 256 bits, so 32-byte identifiers (footers,
// caller-chosen binders) must pass through here before they are hashed.
func ToField(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	return v.Mod(v, fr.Modulus())
}

// HashToField reduces a 32-byte digest into the scalar field.
func HashToField(h common.Hash) *big.Int {
	return ToField(h[:])
}
