// transfer.go - Pure re-commitment operations: transfer, split, join,
// joinSplit.
//
// No value crosses the custody boundary here. Inputs are spent, outputs
// are appended, and conservation of the private amounts is the circuit's
// job, never ledger arithmetic.

package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shadepool/shade/internal/note"
	"github.com/shadepool/shade/internal/registry"
)

// SpendArgs is the shared shape of the re-commitment family. The footers
// belong to the output notes and are consumed globally on settlement.
type SpendArgs struct {
	Caller common.Address

	Root   common.Hash
	Domain note.Domain
	Asset  note.Asset

	Nullifiers     []common.Hash
	NewCommitments []common.Hash
	Footers        []common.Hash

	Proof []byte
}

// TransferArgs is the 1-in/1-out re-commitment.
type TransferArgs SpendArgs

// SplitArgs is the 1-in/2-out re-commitment.
type SplitArgs SpendArgs

// JoinArgs is the 2-in/1-out re-commitment.
type JoinArgs SpendArgs

// JoinSplitArgs is the 2-in/2-out re-commitment.
type JoinSplitArgs SpendArgs

// Transfer re-commits one note to one new owner.
func (e *Engine) Transfer(a TransferArgs) (*Receipt, error) {
	return e.spend(OpTransfer, SpendArgs(a), 1, 1)
}

// Split breaks one note into two.
func (e *Engine) Split(a SplitArgs) (*Receipt, error) {
	return e.spend(OpSplit, SpendArgs(a), 1, 2)
}

// Join merges two notes into one.
func (e *Engine) Join(a JoinArgs) (*Receipt, error) {
	return e.spend(OpJoin, SpendArgs(a), 2, 1)
}

// JoinSplit spends two notes into two fresh ones.
func (e *Engine) JoinSplit(a JoinSplitArgs) (*Receipt, error) {
	return e.spend(OpJoinSplit, SpendArgs(a), 2, 2)
}

func (e *Engine) spend(op string, a SpendArgs, inputs, outputs int) (*Receipt, error) {
	if err := e.validateSpend(a, inputs, outputs); err != nil {
		return nil, e.reject(op, err)
	}
	if err := e.gateway.Verify(op, a.Proof, e.spendInputs(a)); err != nil {
		return nil, e.reject(op, err)
	}

	batch, err := e.stage(a.Footers, a.Nullifiers, a.NewCommitments)
	if err != nil {
		return nil, e.reject(op, err)
	}

	r := &Receipt{
		Operation:   op,
		Nullifiers:  a.Nullifiers,
		Commitments: a.NewCommitments,
		Footers:     a.Footers,
		Assets:      []note.Asset{a.Asset},
	}
	if err := e.finish(batch, r); err != nil {
		return nil, e.reject(op, err)
	}
	return r, nil
}

func (e *Engine) validateSpend(a SpendArgs, inputs, outputs int) error {
	if len(a.Nullifiers) != inputs || len(a.NewCommitments) != outputs || len(a.Footers) != outputs {
		return fmt.Errorf("%w: want %d-in/%d-out, got %d/%d/%d footers",
			ErrArityMismatch, inputs, outputs,
			len(a.Nullifiers), len(a.NewCommitments), len(a.Footers))
	}
	if err := a.Asset.Valid(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := e.requireCapacity(outputs); err != nil {
		return err
	}
	if err := e.requireKnownRoot(a.Root); err != nil {
		return err
	}
	// Duplicate inputs fail fast, before the proof is touched.
	seen := make(map[common.Hash]struct{}, inputs)
	for _, nf := range a.Nullifiers {
		if _, dup := seen[nf]; dup {
			return fmt.Errorf("%w: %s", registry.ErrNullifierUsed, nf.Hex())
		}
		seen[nf] = struct{}{}
		if err := e.requireSpendableNullifier(nf); err != nil {
			return err
		}
	}
	if err := e.requireFreshFooters(a.Footers); err != nil {
		return err
	}
	return e.requireFreshCommitments(a.NewCommitments)
}
