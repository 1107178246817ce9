// registry.go - Spend registry interfaces and lifecycle errors.
//
// The registry tracks three monotonically-filling sets keyed by 32-byte
// identifiers: commitments created, nullifiers used, footers consumed;
// plus an independent lock bit per nullifier. Mutation happens only
// through a Batch so a failed operation can be discarded without trace.

package registry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoteAlreadyCreated fires when a commitment id is registered twice.
	ErrNoteAlreadyCreated = errors.New("registry: note already created")
	// ErrNullifierUsed fires on a second spend of the same nullifier.
	ErrNullifierUsed = errors.New("registry: nullifier used")
	// ErrNullifierLocked fires when an operation touches a frozen nullifier.
	ErrNullifierLocked = errors.New("registry: nullifier locked")
	// ErrNoteFooterUsed fires when a footer binder is consumed twice.
	ErrNoteFooterUsed = errors.New("registry: note footer used")
)

// Store is the read surface plus batch factory. Implementations are
// single-writer: the orchestrator owns all mutation.
type Store interface {
	IsCommitmentCreated(id common.Hash) (bool, error)
	IsNullifierUsed(id common.Hash) (bool, error)
	IsNullifierLocked(id common.Hash) (bool, error)
	IsFooterUsed(id common.Hash) (bool, error)

	// SetNullifierLocked toggles the freeze bit immediately, outside any
	// batch. Used both as an incident-response freeze and as the
	// two-phase lock around multi-step venue calls.
	SetNullifierLocked(id common.Hash, locked bool) error

	// Batch opens a staging handle. Writes become visible to the Store
	// only on Commit; Discard drops them all.
	Batch() (Batch, error)

	Close() error
}

// Batch stages the mutations of a single operation. Each mark is
// idempotency-checked against both committed and staged state, so
// check-then-act holds inside the batch as well.
type Batch interface {
	MarkCommitmentCreated(id common.Hash) error
	MarkNullifierUsed(id common.Hash) error
	MarkFooterUsed(id common.Hash) error

	Commit() error
	Discard()
}
