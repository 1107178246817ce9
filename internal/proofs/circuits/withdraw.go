// withdraw.go - Reference circuit for the withdraw operation.

package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Withdraw proves knowledge of a note (domain, asset, amount, footer) and
// its spend key such that the public nullifier is H(key, commitment). The
// root, recipient, relayer and refund ride in the statement so the proof
// cannot be replayed against different settlement parameters. The ledger
// separately checks the root against its accepted window.
type Withdraw struct {
	Root          frontend.Variable `gnark:",public"`
	Nullifier     frontend.Variable `gnark:",public"`
	Domain        frontend.Variable `gnark:",public"`
	Asset         frontend.Variable `gnark:",public"` // bytified
	Amount        frontend.Variable `gnark:",public"`
	Recipient     frontend.Variable `gnark:",public"`
	Relayer       frontend.Variable `gnark:",public"`
	RelayerRefund frontend.Variable `gnark:",public"`

	SpendKey frontend.Variable
	Footer   frontend.Variable
}

func (c *Withdraw) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Domain, c.Asset, c.Amount, c.Footer)
	cm := h.Sum()

	h.Reset()
	h.Write(c.SpendKey, cm)
	api.AssertIsEqual(c.Nullifier, h.Sum())
	return nil
}
