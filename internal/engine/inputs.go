// inputs.go - Frozen public-input orderings per operation.
//
// Each builder flattens typed arguments into the ordered scalar vector the
// operation's verifier was compiled against. Changing an order here breaks
// every previously issued proof; the orders are wire contracts.

package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/note"
)

func addrToField(a common.Address) *big.Int {
	return new(big.Int).SetBytes(a.Bytes())
}

func amountToField(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// depositInputs: [commitment, domain, asset, amount, footer].
func (e *Engine) depositInputs(a DepositArgs) []*big.Int {
	return []*big.Int{
		note.HashToField(a.Commitment),
		big.NewInt(int64(a.Domain)),
		a.Asset.Bytify(e.hasher),
		amountToField(a.Amount),
		note.ToField(a.Footer[:]),
	}
}

// withdrawInputs: [root, nullifier, domain, asset, amount, recipient,
// relayer, relayerRefund].
func (e *Engine) withdrawInputs(a WithdrawArgs) []*big.Int {
	return []*big.Int{
		note.HashToField(a.Root),
		note.HashToField(a.Nullifier),
		big.NewInt(int64(a.Domain)),
		a.Asset.Bytify(e.hasher),
		amountToField(a.Amount),
		addrToField(a.Recipient),
		addrToField(a.Relayer),
		amountToField(a.RelayerRefund),
	}
}

// spendInputs: [root, domain, asset, nullifiers..., commitments...].
func (e *Engine) spendInputs(a SpendArgs) []*big.Int {
	in := make([]*big.Int, 0, 3+len(a.Nullifiers)+len(a.NewCommitments))
	in = append(in,
		note.HashToField(a.Root),
		big.NewInt(int64(a.Domain)),
		a.Asset.Bytify(e.hasher),
	)
	for _, nf := range a.Nullifiers {
		in = append(in, note.HashToField(nf))
	}
	for _, cm := range a.NewCommitments {
		in = append(in, note.HashToField(cm))
	}
	return in
}

// swapInputs: [root, nullifier, newCommitment, domain, assetIn, amountIn,
// assetOut, minOut].
func (e *Engine) swapInputs(a SwapArgs) []*big.Int {
	return []*big.Int{
		note.HashToField(a.Root),
		note.HashToField(a.Nullifier),
		note.HashToField(a.NewCommitment),
		big.NewInt(int64(a.Domain)),
		a.AssetIn.Bytify(e.hasher),
		amountToField(a.AmountIn),
		a.AssetOut.Bytify(e.hasher),
		amountToField(a.MinOut),
	}
}

// defiCallInputs: [root, domain, then per lane: nullifier, newCommitment,
// assetIn, amountIn, assetOut, minOut].
func (e *Engine) defiCallInputs(a DefiCallArgs) []*big.Int {
	in := make([]*big.Int, 0, 2+6*len(a.Lanes))
	in = append(in,
		note.HashToField(a.Root),
		big.NewInt(int64(a.Domain)),
	)
	for _, lane := range a.Lanes {
		in = append(in,
			note.HashToField(lane.Nullifier),
			note.HashToField(lane.NewCommitment),
			lane.AssetIn.Bytify(e.hasher),
			amountToField(lane.AmountIn),
			lane.AssetOut.Bytify(e.hasher),
			amountToField(lane.MinOut),
		)
	}
	return in
}
