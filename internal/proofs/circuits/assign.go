// assign.go - Public-input vectors mapped back onto circuit assignments.
//
// Each builder is the inverse of the orchestrator's input ordering for one
// operation name. Vector length is checked strictly; a mismatched vector
// means the wire contract was broken, never something to paper over.

package circuits

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// DepositAssignment maps [commitment, domain, asset, amount, footer].
func DepositAssignment(in []*big.Int) (frontend.Circuit, error) {
	if len(in) != 5 {
		return nil, fmt.Errorf("deposit expects 5 public inputs, got %d", len(in))
	}
	return &Deposit{
		Commitment: in[0],
		Domain:     in[1],
		Asset:      in[2],
		Amount:     in[3],
		Footer:     in[4],
	}, nil
}

// WithdrawAssignment maps [root, nullifier, domain, asset, amount,
// recipient, relayer, relayerRefund].
func WithdrawAssignment(in []*big.Int) (frontend.Circuit, error) {
	if len(in) != 8 {
		return nil, fmt.Errorf("withdraw expects 8 public inputs, got %d", len(in))
	}
	return &Withdraw{
		Root:          in[0],
		Nullifier:     in[1],
		Domain:        in[2],
		Asset:         in[3],
		Amount:        in[4],
		Recipient:     in[5],
		Relayer:       in[6],
		RelayerRefund: in[7],
	}, nil
}

// SpendAssignment maps [root, domain, asset, nullifiers..., commitments...]
// for a spend circuit of the given arity.
func SpendAssignment(inputs, outputs int) func([]*big.Int) (frontend.Circuit, error) {
	return func(in []*big.Int) (frontend.Circuit, error) {
		want := 3 + inputs + outputs
		if len(in) != want {
			return nil, fmt.Errorf("spend %d-in/%d-out expects %d public inputs, got %d",
				inputs, outputs, want, len(in))
		}
		c := NewSpend(inputs, outputs)
		c.Root = in[0]
		c.Domain = in[1]
		c.Asset = in[2]
		for i := 0; i < inputs; i++ {
			c.Nullifiers[i] = in[3+i]
		}
		for i := 0; i < outputs; i++ {
			c.NewCommitments[i] = in[3+inputs+i]
		}
		return c, nil
	}
}

// DefiCallAssignment maps [root, domain, then per lane: nullifier,
// newCommitment, assetIn, amountIn, assetOut, minOut] for a venue circuit
// of the given lane count.
func DefiCallAssignment(lanes int) func([]*big.Int) (frontend.Circuit, error) {
	return func(in []*big.Int) (frontend.Circuit, error) {
		want := 2 + 6*lanes
		if len(in) != want {
			return nil, fmt.Errorf("defi call with %d lanes expects %d public inputs, got %d",
				lanes, want, len(in))
		}
		c := NewDefiCall(lanes)
		c.Root = in[0]
		c.Domain = in[1]
		for i := 0; i < lanes; i++ {
			base := 2 + 6*i
			c.Nullifiers[i] = in[base]
			c.NewCommitments[i] = in[base+1]
			c.AssetsIn[i] = in[base+2]
			c.AmountsIn[i] = in[base+3]
			c.AssetsOut[i] = in[base+4]
			c.MinOuts[i] = in[base+5]
		}
		return c, nil
	}
}

// SwapAssignment maps [root, nullifier, newCommitment, domain, assetIn,
// amountIn, assetOut, minOut].
func SwapAssignment(in []*big.Int) (frontend.Circuit, error) {
	if len(in) != 8 {
		return nil, fmt.Errorf("swap expects 8 public inputs, got %d", len(in))
	}
	return &Swap{
		Root:          in[0],
		Nullifier:     in[1],
		NewCommitment: in[2],
		Domain:        in[3],
		AssetIn:       in[4],
		AmountIn:      in[5],
		AssetOut:      in[6],
		MinOut:        in[7],
	}, nil
}
