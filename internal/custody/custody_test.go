package custody

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/shadepool/shade/internal/note"
)

var (
	pool         = common.HexToAddress("0x1000")
	orchestrator = common.HexToAddress("0x2000")
	owner        = common.HexToAddress("0x3000")
	alice        = common.HexToAddress("0xa11ce")
	token        = common.HexToAddress("0x70c1")
)

func newCustodian(t *testing.T) (*Custodian, *Bank) {
	t.Helper()
	bank := NewBank()
	return New(bank, pool, orchestrator, owner), bank
}

func TestReleaseGatedToOrchestrator(t *testing.T) {
	c, bank := newCustodian(t)
	bank.MintToken(token, pool, uint256.NewInt(100))

	err := c.ReleaseFungible(alice, token, alice, uint256.NewInt(10))
	require.ErrorIs(t, err, ErrUnauthorizedCaller)

	require.NoError(t, c.ReleaseFungible(orchestrator, token, alice, uint256.NewInt(10)))
	bal, err := bank.TokenBalance(token, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10), bal.Uint64())
}

func TestTransferLockHaltsEverything(t *testing.T) {
	c, bank := newCustodian(t)
	bank.MintToken(token, pool, uint256.NewInt(100))
	bank.MintNative(alice, uint256.NewInt(100))

	require.ErrorIs(t, c.SetTransferLock(alice, true), ErrNotOwner)
	require.NoError(t, c.SetTransferLock(owner, true))
	require.True(t, c.TransferLocked())

	err := c.ReleaseFungible(orchestrator, token, alice, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrTransfersLocked)
	err = c.CollectNative(orchestrator, alice, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrTransfersLocked)

	require.NoError(t, c.SetTransferLock(owner, false))
	require.NoError(t, c.ReleaseFungible(orchestrator, token, alice, uint256.NewInt(1)))
}

// reentrantBackend calls back into the custodian mid-transfer, as a
// malicious token contract would.
type reentrantBackend struct {
	Backend
	custodian *Custodian
	inner     error
}

func (r *reentrantBackend) TransferToken(tok, from, to common.Address, amount *uint256.Int) error {
	r.inner = r.custodian.ReleaseFungible(orchestrator, tok, to, amount)
	return nil
}

func TestReleaseIsNonReentrant(t *testing.T) {
	bank := NewBank()
	rb := &reentrantBackend{Backend: bank}
	c := New(rb, pool, orchestrator, owner)
	rb.custodian = c

	require.NoError(t, c.ReleaseFungible(orchestrator, token, alice, uint256.NewInt(1)))
	require.ErrorIs(t, rb.inner, ErrReentrantRelease)
}

func TestReleaseInsufficientPoolBalance(t *testing.T) {
	c, _ := newCustodian(t)
	err := c.ReleaseFungible(orchestrator, token, alice, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestNFTRoundTrip(t *testing.T) {
	c, bank := newCustodian(t)
	id := uint256.NewInt(42)
	bank.MintNFT(token, id, alice)

	require.NoError(t, c.CollectNFT(orchestrator, token, id, alice))
	held, err := c.PoolBalance(note.NFTAsset(token, id))
	require.NoError(t, err)
	require.Equal(t, uint64(1), held.Uint64())

	require.NoError(t, c.ReleaseNFT(orchestrator, token, id, alice))
	held, err = c.PoolBalance(note.NFTAsset(token, id))
	require.NoError(t, err)
	require.True(t, held.IsZero())

	// Releasing an id the pool no longer holds fails at the backend.
	require.ErrorIs(t, c.ReleaseNFT(orchestrator, token, id, alice), ErrNotNFTOwner)
}

func TestPoolBalancePerClass(t *testing.T) {
	c, bank := newCustodian(t)
	bank.MintToken(token, pool, uint256.NewInt(77))
	bank.MintNative(pool, uint256.NewInt(55))

	fungible, err := c.PoolBalance(note.FungibleAsset(token))
	require.NoError(t, err)
	require.Equal(t, uint64(77), fungible.Uint64())

	native, err := c.PoolBalance(note.NativeAsset())
	require.NoError(t, err)
	require.Equal(t, uint64(55), native.Uint64())
}
