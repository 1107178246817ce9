// seal.go - Symmetric note sealing for out-of-band delivery.
//
// Receipts may carry an opaque ciphertext of the output note so the
// recipient can recover it without a second channel. Sealing masks each
// note field with a chained hash of the shared key; opening subtracts the
// same chain. The chain is keyed once and never reused across notes.

package note

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
)

// SealedNote is the masked form of a note: token address, value, footer and
// commitment, each shifted by a key-derived mask in the scalar field.
type SealedNote [4]common.Hash

// Seal masks the note fields under the shared key.
func Seal(h Hasher, key common.Hash, n Note) SealedNote {
	fields := [4]*big.Int{
		new(big.Int).SetBytes(n.Asset.Token.Bytes()),
		n.Value.ToBig(),
		ToField(n.Footer[:]),
		HashToField(n.Commitment(h)),
	}
	var out SealedNote
	mask := key
	for i, f := range fields {
		mask = h.Hash(HashToField(mask))
		c := new(big.Int).Add(f, HashToField(mask))
		c.Mod(c, fr.Modulus())
		out[i] = common.BigToHash(c)
	}
	return out
}

// Open reverses Seal, returning (token, value, footer, commitment) as field
// elements. The caller checks the commitment against the ledger to decide
// whether the note was addressed to it.
func Open(h Hasher, key common.Hash, sealed SealedNote) [4]*big.Int {
	var out [4]*big.Int
	mask := key
	for i, c := range sealed {
		mask = h.Hash(HashToField(mask))
		v := new(big.Int).Sub(HashToField(c), HashToField(mask))
		v.Mod(v, fr.Modulus())
		out[i] = v
	}
	return out
}
