// spend.go - Reference circuit for note-graph recombination.
//
// One parametrized circuit covers transfer (1-in/1-out), split (1-in/2-out),
// join (2-in/1-out) and joinSplit (2-in/2-out): each input note's nullifier
// and each output note's commitment are recomputed in-circuit, and total
// value is conserved across the private amounts. The ledger never sees the
// amounts; it trusts this conservation constraint.

package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Spend is sized at compile time by NewSpend. Public field order is the
// operation's frozen contract: root, domain, asset, nullifiers, then new
// commitments.
type Spend struct {
	Root           frontend.Variable   `gnark:",public"`
	Domain         frontend.Variable   `gnark:",public"`
	Asset          frontend.Variable   `gnark:",public"` // bytified
	Nullifiers     []frontend.Variable `gnark:",public"`
	NewCommitments []frontend.Variable `gnark:",public"`

	SpendKeys  []frontend.Variable
	InAmounts  []frontend.Variable
	InFooters  []frontend.Variable
	OutAmounts []frontend.Variable
	OutFooters []frontend.Variable
}

// NewSpend allocates a spend circuit shape with the given arity.
func NewSpend(inputs, outputs int) *Spend {
	return &Spend{
		Nullifiers:     make([]frontend.Variable, inputs),
		NewCommitments: make([]frontend.Variable, outputs),
		SpendKeys:      make([]frontend.Variable, inputs),
		InAmounts:      make([]frontend.Variable, inputs),
		InFooters:      make([]frontend.Variable, inputs),
		OutAmounts:     make([]frontend.Variable, outputs),
		OutFooters:     make([]frontend.Variable, outputs),
	}
}

func (c *Spend) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	inSum := frontend.Variable(0)
	for i := range c.Nullifiers {
		h.Reset()
		h.Write(c.Domain, c.Asset, c.InAmounts[i], c.InFooters[i])
		cm := h.Sum()

		h.Reset()
		h.Write(c.SpendKeys[i], cm)
		api.AssertIsEqual(c.Nullifiers[i], h.Sum())

		inSum = api.Add(inSum, c.InAmounts[i])
	}

	outSum := frontend.Variable(0)
	for i := range c.NewCommitments {
		h.Reset()
		h.Write(c.Domain, c.Asset, c.OutAmounts[i], c.OutFooters[i])
		api.AssertIsEqual(c.NewCommitments[i], h.Sum())

		outSum = api.Add(outSum, c.OutAmounts[i])
	}

	// Value conservation across the private amounts.
	api.AssertIsEqual(inSum, outSum)
	return nil
}
