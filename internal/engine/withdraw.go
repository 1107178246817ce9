// withdraw.go - Outbound value: spend a note and pay out with a fee split.

package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/fees"
	"github.com/shadepool/shade/internal/note"
)

// WithdrawArgs describes one withdrawal. The operation is relayer-gated:
// the declared relayer must be registered and must be the caller.
type WithdrawArgs struct {
	Caller common.Address

	Root      common.Hash
	Nullifier common.Hash

	Domain        note.Domain
	Asset         note.Asset
	Amount        *uint256.Int
	Recipient     common.Address
	Relayer       common.Address
	RelayerRefund *uint256.Int

	Proof []byte
}

// Withdraw spends a note, splits the amount into actual, service fee and
// relayer refund, and releases each part from the pool.
func (e *Engine) Withdraw(a WithdrawArgs) (*Receipt, error) {
	if err := e.validateWithdraw(a); err != nil {
		return nil, e.reject(OpWithdraw, err)
	}
	if err := e.gateway.Verify(OpWithdraw, a.Proof, e.withdrawInputs(a)); err != nil {
		return nil, e.reject(OpWithdraw, err)
	}

	// Fee math runs before any state is touched so arithmetic failures
	// never cost a batch.
	var split fees.Split
	if a.Domain == note.DomainFungible {
		var err error
		split, err = fees.Calculate(a.Amount, a.RelayerRefund, e.feeRate)
		if err != nil {
			return nil, e.reject(OpWithdraw, err)
		}
	}

	batch, err := e.stage(nil, []common.Hash{a.Nullifier}, nil)
	if err != nil {
		return nil, e.reject(OpWithdraw, err)
	}

	if err := e.payout(a, split); err != nil {
		batch.Discard()
		return nil, e.reject(OpWithdraw, fmt.Errorf("engine: withdraw settlement: %w", err))
	}

	r := &Receipt{
		Operation:  OpWithdraw,
		Nullifiers: []common.Hash{a.Nullifier},
		Assets:     []note.Asset{a.Asset},
		Amounts:    []*uint256.Int{new(uint256.Int).Set(a.Amount)},
	}
	if err := e.finish(batch, r); err != nil {
		return nil, e.reject(OpWithdraw, err)
	}
	return r, nil
}

func (e *Engine) validateWithdraw(a WithdrawArgs) error {
	if err := e.requireRelayer(a.Caller, a.Relayer); err != nil {
		return err
	}
	if err := a.Asset.Valid(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if a.Amount == nil || (a.Domain == note.DomainFungible && a.Amount.IsZero()) {
		return ErrZeroAmount
	}
	if a.Domain == note.DomainNonFungible && a.RelayerRefund != nil && !a.RelayerRefund.IsZero() {
		return fmt.Errorf("%w: refund on non-fungible withdrawal", fees.ErrFeeExceedsAmount)
	}
	if err := e.requireKnownRoot(a.Root); err != nil {
		return err
	}
	return e.requireSpendableNullifier(a.Nullifier)
}

// payout releases the split parts. A non-fungible withdrawal hands the
// token id to the recipient whole; fees apply only to fungible value.
func (e *Engine) payout(a WithdrawArgs, split fees.Split) error {
	if a.Domain == note.DomainNonFungible {
		return e.custodian.ReleaseNFT(e.identity, a.Asset.Token, a.Asset.TokenID, a.Recipient)
	}

	release := e.custodian.ReleaseFungible
	if a.Asset.IsNative() {
		release = func(caller, _, to common.Address, amount *uint256.Int) error {
			return e.custodian.ReleaseNative(caller, to, amount)
		}
	}
	if !split.Actual.IsZero() {
		if err := release(e.identity, a.Asset.Token, a.Recipient, split.Actual); err != nil {
			return err
		}
	}
	if !split.ServiceFee.IsZero() {
		if err := release(e.identity, a.Asset.Token, e.feeSink, split.ServiceFee); err != nil {
			return err
		}
	}
	if !split.RelayerRefund.IsZero() {
		if err := release(e.identity, a.Asset.Token, a.Relayer, split.RelayerRefund); err != nil {
			return err
		}
	}
	return nil
}
