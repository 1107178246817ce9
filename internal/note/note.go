// note.go - The confidential note model.
//
// A note binds (domain, asset, amount-or-id, footer). It is never stored on
// the ledger directly; only its commitment is appended to the accumulator,
// and on spend the prover surfaces an independently derived nullifier. The
// footer is a caller-chosen 256-bit binder that personalizes the commitment
// and is consumed at most once globally.

package note

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Domain separates fungible and non-fungible note commitments under the
// hash. The two domains can never collide.
type Domain uint8

const (
	DomainFungible    Domain = 1
	DomainNonFungible Domain = 2
)

// Note is the off-ledger preimage of a commitment.
type Note struct {
	Domain Domain
	Asset  Asset
	Value  *uint256.Int // token amount, or token id for non-fungible notes
	Footer common.Hash
}

// NewFungible builds a fungible note.
func NewFungible(asset Asset, amount *uint256.Int, footer common.Hash) Note {
	return Note{Domain: DomainFungible, Asset: asset, Value: amount, Footer: footer}
}

// NewNonFungible builds a non-fungible note carrying a token id.
func NewNonFungible(asset Asset, footer common.Hash) Note {
	id := new(uint256.Int)
	if asset.TokenID != nil {
		id.Set(asset.TokenID)
	}
	return Note{Domain: DomainNonFungible, Asset: asset, Value: id, Footer: footer}
}

// Commitment derives the note commitment:
//
//	cm = H(domain, bytify(asset), value, footer)
//
// Deterministic given the note content; the footer keeps otherwise equal
// notes distinct.
func (n Note) Commitment(h Hasher) common.Hash {
	return h.Hash(
		big.NewInt(int64(n.Domain)),
		n.Asset.Bytify(h),
		n.Value.ToBig(),
		ToField(n.Footer[:]),
	)
}

// Nullifier derives the spend tag for a committed note:
//
//	nf = H(spendKey, cm)
//
// Produced off-ledger by the prover; the ledger only ever sees the result
// and trusts the proof to bind it to the note content.
func Nullifier(h Hasher, spendKey, commitment common.Hash) common.Hash {
	return h.Hash(HashToField(spendKey), HashToField(commitment))
}
