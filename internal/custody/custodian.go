// custodian.go - Custodial pools gating all value movement.
//
// The custodian holds pooled assets and releases them only at the
// orchestrator's instruction. It keeps no note accounting whatsoever;
// that lives in the accumulator and spend registry. Releases perform
// external transfers, so they are non-reentrant, and the owner can halt
// everything with the transfer lock for incident response.

package custody

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/note"
)

var (
	// ErrUnauthorizedCaller fires when anyone but the orchestrator moves value.
	ErrUnauthorizedCaller = errors.New("custody: caller is not the orchestrator")
	// ErrNotOwner fires when anyone but the owner toggles the transfer lock.
	ErrNotOwner = errors.New("custody: caller is not the owner")
	// ErrTransfersLocked fires while the global transfer lock is engaged.
	ErrTransfersLocked = errors.New("custody: transfers locked")
	// ErrReentrantRelease fires when a release re-enters an in-flight one.
	ErrReentrantRelease = errors.New("custody: reentrant release")
)

// Custodian is the value-movement boundary for all three asset classes.
type Custodian struct {
	backend      Backend
	account      common.Address // pooled funds live here
	orchestrator common.Address
	owner        common.Address
	locked       bool
	inFlight     bool
}

// New binds the custodian to its pool account and its single permitted
// caller.
func New(backend Backend, account, orchestrator, owner common.Address) *Custodian {
	return &Custodian{
		backend:      backend,
		account:      account,
		orchestrator: orchestrator,
		owner:        owner,
	}
}

// Account returns the pool account address.
func (c *Custodian) Account() common.Address {
	return c.account
}

// TransferLocked reports the incident-response lock state.
func (c *Custodian) TransferLocked() bool {
	return c.locked
}

// SetTransferLock halts (or resumes) every release and collect.
func (c *Custodian) SetTransferLock(caller common.Address, locked bool) error {
	if caller != c.owner {
		return ErrNotOwner
	}
	c.locked = locked
	return nil
}

// enter performs the shared gate checks and arms the reentrancy guard.
func (c *Custodian) enter(caller common.Address) error {
	if caller != c.orchestrator {
		return ErrUnauthorizedCaller
	}
	if c.locked {
		return ErrTransfersLocked
	}
	if c.inFlight {
		return ErrReentrantRelease
	}
	c.inFlight = true
	return nil
}

func (c *Custodian) leave() {
	c.inFlight = false
}

// ReleaseFungible pays tokens out of the pool.
func (c *Custodian) ReleaseFungible(caller, token, to common.Address, amount *uint256.Int) error {
	if err := c.enter(caller); err != nil {
		return err
	}
	defer c.leave()
	return c.backend.TransferToken(token, c.account, to, amount)
}

// ReleaseNative pays native value out of the pool.
func (c *Custodian) ReleaseNative(caller, to common.Address, amount *uint256.Int) error {
	if err := c.enter(caller); err != nil {
		return err
	}
	defer c.leave()
	return c.backend.TransferNative(c.account, to, amount)
}

// ReleaseNFT hands a held token id out of the pool.
func (c *Custodian) ReleaseNFT(caller, token common.Address, id *uint256.Int, to common.Address) error {
	if err := c.enter(caller); err != nil {
		return err
	}
	defer c.leave()
	return c.backend.TransferNFT(token, id, c.account, to)
}

// CollectFungible pulls tokens from a depositor into the pool.
func (c *Custodian) CollectFungible(caller, token, from common.Address, amount *uint256.Int) error {
	if err := c.enter(caller); err != nil {
		return err
	}
	defer c.leave()
	return c.backend.TransferToken(token, from, c.account, amount)
}

// CollectNative pulls native value from a depositor into the pool.
func (c *Custodian) CollectNative(caller, from common.Address, amount *uint256.Int) error {
	if err := c.enter(caller); err != nil {
		return err
	}
	defer c.leave()
	return c.backend.TransferNative(from, c.account, amount)
}

// CollectNFT pulls a token id from a depositor into the pool.
func (c *Custodian) CollectNFT(caller, token common.Address, id *uint256.Int, from common.Address) error {
	if err := c.enter(caller); err != nil {
		return err
	}
	defer c.leave()
	return c.backend.TransferNFT(token, id, from, c.account)
}

// PoolBalance reports how much of an asset the pool currently holds. For
// a non-fungible asset the balance is 1 when the pool owns the id.
func (c *Custodian) PoolBalance(asset note.Asset) (*uint256.Int, error) {
	switch asset.Kind {
	case note.AssetNative:
		return c.backend.NativeBalance(c.account)
	case note.AssetNonFungible:
		owner, err := c.backend.OwnerOf(asset.Token, asset.TokenID)
		if err != nil {
			return nil, err
		}
		if owner == c.account {
			return uint256.NewInt(1), nil
		}
		return new(uint256.Int), nil
	default:
		return c.backend.TokenBalance(asset.Token, c.account)
	}
}
