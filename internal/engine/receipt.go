// receipt.go - Settlement receipts.

package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/note"
)

// Operation names. Each is also the proof gateway key for the operation's
// verifier and part of the public wire contract.
const (
	OpDeposit   = "deposit"
	OpWithdraw  = "withdraw"
	OpTransfer  = "transfer"
	OpSplit     = "split"
	OpJoin      = "join"
	OpJoinSplit = "joinSplit"
	OpSwap      = "swap"
	OpDefiCall  = "defiCall"
)

// Receipt is the structured record of one settled operation. It is
// returned to the caller, published on the event bus and logged.
type Receipt struct {
	Operation string

	Nullifiers  []common.Hash
	Commitments []common.Hash
	Footers     []common.Hash

	Assets  []note.Asset
	Amounts []*uint256.Int

	// MeasuredOut carries the balance-delta measured venue outputs for
	// swap and DeFi operations, nil otherwise.
	MeasuredOut []*uint256.Int

	// Root is the accumulator root after the operation's appends.
	Root common.Hash
	// LeafIndices are the positions of the appended commitments.
	LeafIndices []uint64

	// Sealed optionally carries output notes encrypted to recipients for
	// out-of-band delivery.
	Sealed []note.SealedNote
}
