// deposit.go - Reference circuit for the deposit operation.
//
// Deposit reveals asset and amount (the custodian must collect them) and
// proves only that the submitted commitment is well formed over those
// public values and the public footer.

package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Deposit proves commitment = H(domain, asset, amount, footer).
// Field order is the deposit operation's frozen public-input contract.
type Deposit struct {
	Commitment frontend.Variable `gnark:",public"`
	Domain     frontend.Variable `gnark:",public"`
	Asset      frontend.Variable `gnark:",public"` // bytified
	Amount     frontend.Variable `gnark:",public"`
	Footer     frontend.Variable `gnark:",public"`
}

func (c *Deposit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Domain, c.Asset, c.Amount, c.Footer)
	api.AssertIsEqual(c.Commitment, h.Sum())
	return nil
}
