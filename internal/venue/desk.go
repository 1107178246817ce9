// desk.go - Fixed-rate in-memory venue for tests and the dev daemon.

package venue

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/custody"
	"github.com/shadepool/shade/internal/note"
)

// ErrNoQuote fires when the desk has no rate for an asset pair.
var ErrNoQuote = errors.New("venue: no quote for pair")

// RateDenominator scales desk quotes: out = in * rate / RateDenominator.
const RateDenominator = 1_000_000

// Desk is a deterministic swap venue backed by the custody bank. It
// quotes fixed rates per asset pair and settles out of its own account,
// which makes venue failure modes (short output, refusal) scriptable in
// tests.
type Desk struct {
	backend custody.Backend
	account common.Address
	rates   map[string]uint64 // pairKey -> rate per million

	// Fail forces the next Execute to error without moving funds.
	Fail error
	// Shortfall subtracts a flat amount from every output lane, for
	// exercising slippage enforcement.
	Shortfall *uint256.Int
}

// NewDesk returns a desk settling through the given backend account.
func NewDesk(backend custody.Backend, account common.Address) *Desk {
	return &Desk{backend: backend, account: account, rates: make(map[string]uint64)}
}

func pairKey(in, out note.Asset) string {
	return in.String() + ">" + out.String()
}

// Quote sets the in->out rate, in parts per million.
func (d *Desk) Quote(in, out note.Asset, ratePerMillion uint64) {
	d.rates[pairKey(in, out)] = ratePerMillion
}

// Address implements Venue.
func (d *Desk) Address() common.Address {
	return d.account
}

// Execute swaps every input lane into its output lane at the quoted
// rate and pays the recipient from the desk account.
func (d *Desk) Execute(call Call, recipient common.Address) error {
	if d.Fail != nil {
		return d.Fail
	}
	for i, in := range call.AssetsIn {
		out := call.AssetsOut[i]
		rate, ok := d.rates[pairKey(in, out)]
		if !ok {
			return fmt.Errorf("%w: %s -> %s", ErrNoQuote, in, out)
		}
		produced := new(uint256.Int).Mul(call.AmountsIn[i], uint256.NewInt(rate))
		produced.Div(produced, uint256.NewInt(RateDenominator))
		if d.Shortfall != nil {
			if produced.Lt(d.Shortfall) {
				produced.Clear()
			} else {
				produced.Sub(produced, d.Shortfall)
			}
		}
		if err := d.pay(out, recipient, produced); err != nil {
			return err
		}
	}
	return nil
}

func (d *Desk) pay(asset note.Asset, to common.Address, amount *uint256.Int) error {
	switch asset.Kind {
	case note.AssetNative:
		return d.backend.TransferNative(d.account, to, amount)
	case note.AssetNonFungible:
		return d.backend.TransferNFT(asset.Token, asset.TokenID, d.account, to)
	default:
		return d.backend.TransferToken(asset.Token, d.account, to, amount)
	}
}
