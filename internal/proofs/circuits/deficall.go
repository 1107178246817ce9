// deficall.go - Multi-lane venue circuit.
//
// Generalizes the swap statement to several independent lanes spent and
// re-committed in one operation. Each lane proves knowledge of the spent
// note behind its nullifier and binds the replacement commitment to the
// declared output asset and minimum amount.

package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// DefiCall is the venue-operation statement with a fixed lane count
// chosen at compile time.
type DefiCall struct {
	Root   frontend.Variable `gnark:",public"`
	Domain frontend.Variable `gnark:",public"`

	Nullifiers     []frontend.Variable `gnark:",public"`
	NewCommitments []frontend.Variable `gnark:",public"`
	AssetsIn       []frontend.Variable `gnark:",public"`
	AmountsIn      []frontend.Variable `gnark:",public"`
	AssetsOut      []frontend.Variable `gnark:",public"`
	MinOuts        []frontend.Variable `gnark:",public"`

	SpendKeys  []frontend.Variable
	InFooters  []frontend.Variable
	OutFooters []frontend.Variable
}

// NewDefiCall allocates the statement for a given lane count.
func NewDefiCall(lanes int) *DefiCall {
	return &DefiCall{
		Nullifiers:     make([]frontend.Variable, lanes),
		NewCommitments: make([]frontend.Variable, lanes),
		AssetsIn:       make([]frontend.Variable, lanes),
		AmountsIn:      make([]frontend.Variable, lanes),
		AssetsOut:      make([]frontend.Variable, lanes),
		MinOuts:        make([]frontend.Variable, lanes),
		SpendKeys:      make([]frontend.Variable, lanes),
		InFooters:      make([]frontend.Variable, lanes),
		OutFooters:     make([]frontend.Variable, lanes),
	}
}

func (c *DefiCall) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	for i := range c.Nullifiers {
		// cmIn = H(domain, assetIn, amountIn, inFooter)
		h.Reset()
		h.Write(c.Domain, c.AssetsIn[i], c.AmountsIn[i], c.InFooters[i])
		cmIn := h.Sum()

		// nf = H(spendKey, cmIn)
		h.Reset()
		h.Write(c.SpendKeys[i], cmIn)
		api.AssertIsEqual(c.Nullifiers[i], h.Sum())

		// cmOut = H(domain, assetOut, minOut, outFooter)
		h.Reset()
		h.Write(c.Domain, c.AssetsOut[i], c.MinOuts[i], c.OutFooters[i])
		api.AssertIsEqual(c.NewCommitments[i], h.Sum())
	}
	return nil
}
