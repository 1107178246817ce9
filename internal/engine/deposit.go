// deposit.go - Inbound value: deposit a new note against collected funds.

package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/note"
)

// DepositArgs describes one deposit. The commitment and footer are the
// public face of the note; the proof binds them to the declared asset and
// amount.
type DepositArgs struct {
	Depositor common.Address

	Domain     note.Domain
	Asset      note.Asset
	Amount     *uint256.Int // token amount, or token id for non-fungible
	Footer     common.Hash
	Commitment common.Hash

	Proof []byte
}

// Deposit collects value from the depositor into the pool and appends the
// note commitment. The compliance oracle is consulted exactly once.
func (e *Engine) Deposit(a DepositArgs) (*Receipt, error) {
	if err := e.validateDeposit(a); err != nil {
		return nil, e.reject(OpDeposit, err)
	}
	if err := e.gateway.Verify(OpDeposit, a.Proof, e.depositInputs(a)); err != nil {
		return nil, e.reject(OpDeposit, err)
	}

	batch, err := e.stage([]common.Hash{a.Footer}, nil, []common.Hash{a.Commitment})
	if err != nil {
		return nil, e.reject(OpDeposit, err)
	}

	if err := e.collect(a); err != nil {
		batch.Discard()
		return nil, e.reject(OpDeposit, fmt.Errorf("engine: deposit settlement: %w", err))
	}

	r := &Receipt{
		Operation:   OpDeposit,
		Commitments: []common.Hash{a.Commitment},
		Footers:     []common.Hash{a.Footer},
		Assets:      []note.Asset{a.Asset},
		Amounts:     []*uint256.Int{new(uint256.Int).Set(a.Amount)},
	}
	if err := e.finish(batch, r); err != nil {
		return nil, e.reject(OpDeposit, err)
	}
	return r, nil
}

func (e *Engine) validateDeposit(a DepositArgs) error {
	if err := a.Asset.Valid(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if a.Amount == nil || (a.Domain == note.DomainFungible && a.Amount.IsZero()) {
		return ErrZeroAmount
	}
	if !e.compliance.IsAuthorized(e.identity, a.Depositor) {
		return fmt.Errorf("%w: %s", ErrNotAuthorized, a.Depositor.Hex())
	}
	if err := e.requireCapacity(1); err != nil {
		return err
	}
	if err := e.requireFreshFooters([]common.Hash{a.Footer}); err != nil {
		return err
	}
	return e.requireFreshCommitments([]common.Hash{a.Commitment})
}

// collect pulls the deposited value into the pool per asset class.
func (e *Engine) collect(a DepositArgs) error {
	switch {
	case a.Domain == note.DomainNonFungible:
		return e.custodian.CollectNFT(e.identity, a.Asset.Token, a.Asset.TokenID, a.Depositor)
	case a.Asset.IsNative():
		return e.custodian.CollectNative(e.identity, a.Depositor, a.Amount)
	default:
		return e.custodian.CollectFungible(e.identity, a.Asset.Token, a.Depositor, a.Amount)
	}
}
