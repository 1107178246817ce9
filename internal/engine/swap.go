// swap.go - Venue operations: swap and the multi-lane DeFi call.
//
// Input nullifiers are frozen for the duration of the venue call, the
// input value leaves the pool, the venue runs, and the actual output is
// measured as the pool balance delta of each output asset. The measured
// amount must clear the slippage haircut of the proof-declared minimum;
// only then do the spends commit. On any failure the batch is discarded
// and the freeze lifted, leaving the nullifiers spendable.

package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/fees"
	"github.com/shadepool/shade/internal/note"
	"github.com/shadepool/shade/internal/registry"
	"github.com/shadepool/shade/internal/venue"
)

// SwapArgs describes a single-lane venue swap.
type SwapArgs struct {
	Caller common.Address

	Root          common.Hash
	Nullifier     common.Hash
	NewCommitment common.Hash
	OutFooter     common.Hash

	Domain   note.Domain
	AssetIn  note.Asset
	AmountIn *uint256.Int
	AssetOut note.Asset
	MinOut   *uint256.Int

	CallData []byte
	Proof    []byte
}

// VenueLane is one leg of a DeFi call: an input note swapped into an
// output note through the venue.
type VenueLane struct {
	Nullifier     common.Hash
	NewCommitment common.Hash
	OutFooter     common.Hash

	AssetIn       note.Asset
	AmountIn      *uint256.Int
	AssetOut      note.Asset
	MinOut        *uint256.Int
	RelayerRefund *uint256.Int
}

// DefiCallArgs describes a relayer-gated venue call of up to fees.Lanes
// independent lanes.
type DefiCallArgs struct {
	Caller  common.Address
	Relayer common.Address

	Root   common.Hash
	Domain note.Domain
	Lanes  []VenueLane

	CallData []byte
	Proof    []byte
}

// Swap spends one note into the venue and commits a replacement note of
// the output asset at the declared minimum.
func (e *Engine) Swap(a SwapArgs) (*Receipt, error) {
	if e.venue == nil {
		return nil, e.reject(OpSwap, fmt.Errorf("engine: no venue configured"))
	}
	if err := e.validateSwap(a); err != nil {
		return nil, e.reject(OpSwap, err)
	}
	if err := e.gateway.Verify(OpSwap, a.Proof, e.swapInputs(a)); err != nil {
		return nil, e.reject(OpSwap, err)
	}

	lane := VenueLane{
		Nullifier:     a.Nullifier,
		NewCommitment: a.NewCommitment,
		OutFooter:     a.OutFooter,
		AssetIn:       a.AssetIn,
		AmountIn:      a.AmountIn,
		AssetOut:      a.AssetOut,
		MinOut:        a.MinOut,
	}
	r, err := e.executeVenue(OpSwap, a.Root, []VenueLane{lane}, a.CallData, nil)
	if err != nil {
		return nil, e.reject(OpSwap, err)
	}
	return r, nil
}

// DefiCall runs several lanes through the venue in one operation.
func (e *Engine) DefiCall(a DefiCallArgs) (*Receipt, error) {
	if e.venue == nil {
		return nil, e.reject(OpDefiCall, fmt.Errorf("engine: no venue configured"))
	}
	if err := e.validateDefiCall(a); err != nil {
		return nil, e.reject(OpDefiCall, err)
	}
	op := fmt.Sprintf("%s/%d", OpDefiCall, len(a.Lanes))
	if err := e.gateway.Verify(op, a.Proof, e.defiCallInputs(a)); err != nil {
		return nil, e.reject(OpDefiCall, err)
	}

	// Service fees on the measured outputs, four lanes at a time. The
	// refund lanes pay the relayer for carrying the operation. The
	// settlement runs inside the venue unwind boundary: a fee failure
	// discards the batch and mints nothing.
	settle := func(measured []*uint256.Int) error {
		var amounts, refunds [fees.Lanes]*uint256.Int
		for i, lane := range a.Lanes {
			amounts[i] = measured[i]
			refunds[i] = lane.RelayerRefund
		}
		splits, err := fees.CalculateBatch(amounts, refunds, e.feeRate)
		if err != nil {
			return err
		}
		for i, lane := range a.Lanes {
			if !splits[i].ServiceFee.IsZero() {
				if err := e.releaseAsset(lane.AssetOut, e.feeSink, splits[i].ServiceFee); err != nil {
					return err
				}
			}
			if !splits[i].RelayerRefund.IsZero() {
				if err := e.releaseAsset(lane.AssetOut, a.Relayer, splits[i].RelayerRefund); err != nil {
					return err
				}
			}
		}
		return nil
	}

	r, err := e.executeVenue(OpDefiCall, a.Root, a.Lanes, a.CallData, settle)
	if err != nil {
		return nil, e.reject(OpDefiCall, err)
	}
	return r, nil
}

// executeVenue runs the shared two-phase settlement for venue lanes:
// freeze, stage, pay the venue, measure deltas, enforce the haircut,
// settle fees, commit. The commitments are appended and the receipt
// emitted only after every settlement step succeeded; any earlier
// failure unwinds the freeze and the batch.
func (e *Engine) executeVenue(op string, root common.Hash, lanes []VenueLane, callData []byte, settle func(measured []*uint256.Int) error) (*Receipt, error) {
	nullifiers := make([]common.Hash, len(lanes))
	commitments := make([]common.Hash, len(lanes))
	footers := make([]common.Hash, len(lanes))
	assets := make([]note.Asset, len(lanes))
	call := venue.Call{Data: callData}
	for i, lane := range lanes {
		nullifiers[i] = lane.Nullifier
		commitments[i] = lane.NewCommitment
		footers[i] = lane.OutFooter
		assets[i] = lane.AssetOut
		call.AssetsIn = append(call.AssetsIn, lane.AssetIn)
		call.AmountsIn = append(call.AmountsIn, lane.AmountIn)
		call.AssetsOut = append(call.AssetsOut, lane.AssetOut)
		call.MinOuts = append(call.MinOuts, lane.MinOut)
	}

	// Phase one: freeze the inputs so nothing else can spend them while
	// the pool's funds are out with the venue.
	frozen := make([]common.Hash, 0, len(nullifiers))
	unfreeze := func() {
		for _, nf := range frozen {
			if err := e.store.SetNullifierLocked(nf, false); err != nil {
				e.log.Error().Err(err).Str("nullifier", nf.Hex()).Msg("compensating unlock failed")
			}
		}
	}
	for _, nf := range nullifiers {
		if err := e.store.SetNullifierLocked(nf, true); err != nil {
			unfreeze()
			return nil, err
		}
		frozen = append(frozen, nf)
	}

	batch, err := e.stage(footers, nullifiers, commitments)
	if err != nil {
		unfreeze()
		return nil, err
	}
	fail := func(cause error) (*Receipt, error) {
		batch.Discard()
		unfreeze()
		return nil, cause
	}

	before := make([]*uint256.Int, len(lanes))
	for i, lane := range lanes {
		bal, err := e.custodian.PoolBalance(lane.AssetOut)
		if err != nil {
			return fail(err)
		}
		before[i] = bal
	}

	for _, lane := range lanes {
		if err := e.releaseAsset(lane.AssetIn, e.venue.Address(), lane.AmountIn); err != nil {
			return fail(fmt.Errorf("engine: venue funding: %w", err))
		}
	}
	if err := e.venue.Execute(call, e.custodian.Account()); err != nil {
		e.recoverVenueFunding(lanes)
		return fail(fmt.Errorf("engine: venue call: %w", err))
	}

	measured := make([]*uint256.Int, len(lanes))
	for i, lane := range lanes {
		after, err := e.custodian.PoolBalance(lane.AssetOut)
		if err != nil {
			return fail(err)
		}
		delta := new(uint256.Int)
		if after.Gt(before[i]) {
			delta.Sub(after, before[i])
		}
		if delta.Lt(e.slippageFloor(lane.MinOut)) {
			return fail(fmt.Errorf("%w: lane %d measured %s, min %s",
				ErrSlippage, i, delta.Dec(), lane.MinOut.Dec()))
		}
		measured[i] = delta
	}

	if settle != nil {
		if err := settle(measured); err != nil {
			return fail(err)
		}
	}

	r := &Receipt{
		Operation:   op,
		Nullifiers:  nullifiers,
		Commitments: commitments,
		Footers:     footers,
		Assets:      assets,
		MeasuredOut: measured,
	}
	if err := e.finish(batch, r); err != nil {
		unfreeze()
		return nil, err
	}
	// Phase two: the spends are committed, lift the freeze. The used
	// bit now guards the nullifiers.
	unfreeze()
	return r, nil
}

// recoverVenueFunding pulls input funds back from the venue address after
// a failed call. Best effort; a venue that kept the funds logs an error.
func (e *Engine) recoverVenueFunding(lanes []VenueLane) {
	for _, lane := range lanes {
		var err error
		switch {
		case lane.AssetIn.IsNative():
			err = e.custodian.CollectNative(e.identity, e.venue.Address(), lane.AmountIn)
		case lane.AssetIn.Kind == note.AssetNonFungible:
			err = e.custodian.CollectNFT(e.identity, lane.AssetIn.Token, lane.AssetIn.TokenID, e.venue.Address())
		default:
			err = e.custodian.CollectFungible(e.identity, lane.AssetIn.Token, e.venue.Address(), lane.AmountIn)
		}
		if err != nil {
			e.log.Error().Err(err).Str("asset", lane.AssetIn.String()).Msg("venue funding not recovered")
		}
	}
}

func (e *Engine) releaseAsset(asset note.Asset, to common.Address, amount *uint256.Int) error {
	switch {
	case asset.IsNative():
		return e.custodian.ReleaseNative(e.identity, to, amount)
	case asset.Kind == note.AssetNonFungible:
		return e.custodian.ReleaseNFT(e.identity, asset.Token, asset.TokenID, to)
	default:
		return e.custodian.ReleaseFungible(e.identity, asset.Token, to, amount)
	}
}

// slippageFloor returns minOut reduced by the configured per-mille
// haircut.
func (e *Engine) slippageFloor(minOut *uint256.Int) *uint256.Int {
	haircut := new(uint256.Int).Mul(minOut, uint256.NewInt(e.slippage))
	haircut.Div(haircut, uint256.NewInt(SlippageDenominator))
	return new(uint256.Int).Sub(minOut, haircut)
}

func (e *Engine) validateSwap(a SwapArgs) error {
	if err := a.AssetIn.Valid(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := a.AssetOut.Valid(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if a.AmountIn == nil || a.AmountIn.IsZero() || a.MinOut == nil || a.MinOut.IsZero() {
		return ErrZeroAmount
	}
	if err := e.requireCapacity(1); err != nil {
		return err
	}
	if err := e.requireKnownRoot(a.Root); err != nil {
		return err
	}
	if err := e.requireSpendableNullifier(a.Nullifier); err != nil {
		return err
	}
	if err := e.requireFreshFooters([]common.Hash{a.OutFooter}); err != nil {
		return err
	}
	return e.requireFreshCommitments([]common.Hash{a.NewCommitment})
}

func (e *Engine) validateDefiCall(a DefiCallArgs) error {
	if err := e.requireRelayer(a.Caller, a.Relayer); err != nil {
		return err
	}
	if len(a.Lanes) == 0 || len(a.Lanes) > fees.Lanes {
		return fmt.Errorf("%w: %d lanes, max %d", ErrArityMismatch, len(a.Lanes), fees.Lanes)
	}
	if err := e.requireCapacity(len(a.Lanes)); err != nil {
		return err
	}
	if err := e.requireKnownRoot(a.Root); err != nil {
		return err
	}
	footers := make([]common.Hash, 0, len(a.Lanes))
	commitments := make([]common.Hash, 0, len(a.Lanes))
	seen := make(map[common.Hash]struct{}, len(a.Lanes))
	outAssets := make(map[string]struct{}, len(a.Lanes))
	for i, lane := range a.Lanes {
		if err := lane.AssetIn.Valid(); err != nil {
			return fmt.Errorf("engine: lane %d: %w", i, err)
		}
		if err := lane.AssetOut.Valid(); err != nil {
			return fmt.Errorf("engine: lane %d: %w", i, err)
		}
		if lane.AmountIn == nil || lane.AmountIn.IsZero() || lane.MinOut == nil || lane.MinOut.IsZero() {
			return fmt.Errorf("%w: lane %d", ErrZeroAmount, i)
		}
		// Input nullifiers must be pairwise distinct inside one call.
		if _, dup := seen[lane.Nullifier]; dup {
			return fmt.Errorf("%w: %s", registry.ErrNullifierUsed, lane.Nullifier.Hex())
		}
		seen[lane.Nullifier] = struct{}{}
		if err := e.requireSpendableNullifier(lane.Nullifier); err != nil {
			return err
		}
		// Output measurement is a per-asset balance delta; lanes sharing
		// an output asset cannot be attributed separately.
		if _, dup := outAssets[lane.AssetOut.String()]; dup {
			return fmt.Errorf("%w: %s", ErrSharedOutputAsset, lane.AssetOut)
		}
		outAssets[lane.AssetOut.String()] = struct{}{}
		footers = append(footers, lane.OutFooter)
		commitments = append(commitments, lane.NewCommitment)
	}
	if err := e.requireFreshFooters(footers); err != nil {
		return err
	}
	return e.requireFreshCommitments(commitments)
}
