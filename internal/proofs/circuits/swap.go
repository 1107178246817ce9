// swap.go - Reference circuit for venue operations (swap / DeFi call).
//
// The input note is spent against the proof-declared minimum output; the
// output note commits to that minimum. The engine measures the amount the
// venue actually returned via balance deltas and records it in the
// receipt; the commitment floor is what the proof guarantees.

package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Swap proves the spend of one note of assetIn and the formation of one
// output note of assetOut at the declared minimum. Public field order is
// the swap operation's frozen contract.
type Swap struct {
	Root          frontend.Variable `gnark:",public"`
	Nullifier     frontend.Variable `gnark:",public"`
	NewCommitment frontend.Variable `gnark:",public"`
	Domain        frontend.Variable `gnark:",public"`
	AssetIn       frontend.Variable `gnark:",public"` // bytified
	AmountIn      frontend.Variable `gnark:",public"`
	AssetOut      frontend.Variable `gnark:",public"` // bytified
	MinOut        frontend.Variable `gnark:",public"`

	SpendKey  frontend.Variable
	InFooter  frontend.Variable
	OutFooter frontend.Variable
}

func (c *Swap) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Domain, c.AssetIn, c.AmountIn, c.InFooter)
	cmIn := h.Sum()

	h.Reset()
	h.Write(c.SpendKey, cmIn)
	api.AssertIsEqual(c.Nullifier, h.Sum())

	h.Reset()
	h.Write(c.Domain, c.AssetOut, c.MinOut, c.OutFooter)
	api.AssertIsEqual(c.NewCommitment, h.Sum())
	return nil
}
