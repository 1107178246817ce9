// bank.go - In-memory Backend for tests and the dev daemon.

package custody

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientBalance fires when a transfer exceeds the source funds.
	ErrInsufficientBalance = errors.New("custody: insufficient balance")
	// ErrNotNFTOwner fires when the source does not hold the token id.
	ErrNotNFTOwner = errors.New("custody: not nft owner")
)

// Bank is a map-backed Backend. It is the dev stand-in for real token
// contracts; production deployments bind a chain-backed implementation.
type Bank struct {
	mu     sync.Mutex
	tokens map[common.Address]map[common.Address]*uint256.Int
	native map[common.Address]*uint256.Int
	nfts   map[string]common.Address // token:id -> owner
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{
		tokens: make(map[common.Address]map[common.Address]*uint256.Int),
		native: make(map[common.Address]*uint256.Int),
		nfts:   make(map[string]common.Address),
	}
}

func nftKey(token common.Address, id *uint256.Int) string {
	return fmt.Sprintf("%s:%s", token.Hex(), id.Hex())
}

// MintToken credits a fungible balance out of thin air (test setup).
func (b *Bank) MintToken(token, owner common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creditToken(token, owner, amount)
}

// MintNative credits a native balance (test setup).
func (b *Bank) MintNative(owner common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.native[owner]
	if !ok {
		cur = new(uint256.Int)
		b.native[owner] = cur
	}
	cur.Add(cur, amount)
}

// MintNFT assigns a token id to an owner (test setup).
func (b *Bank) MintNFT(token common.Address, id *uint256.Int, owner common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nfts[nftKey(token, id)] = owner
}

func (b *Bank) creditToken(token, owner common.Address, amount *uint256.Int) {
	owners, ok := b.tokens[token]
	if !ok {
		owners = make(map[common.Address]*uint256.Int)
		b.tokens[token] = owners
	}
	cur, ok := owners[owner]
	if !ok {
		cur = new(uint256.Int)
		owners[owner] = cur
	}
	cur.Add(cur, amount)
}

func (b *Bank) TransferToken(token, from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.tokens[token][from]
	if cur == nil || cur.Lt(amount) {
		return fmt.Errorf("%w: token %s from %s", ErrInsufficientBalance, token.Hex(), from.Hex())
	}
	cur.Sub(cur, amount)
	b.creditToken(token, to, amount)
	return nil
}

func (b *Bank) TransferNative(from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.native[from]
	if cur == nil || cur.Lt(amount) {
		return fmt.Errorf("%w: native from %s", ErrInsufficientBalance, from.Hex())
	}
	cur.Sub(cur, amount)
	dst, ok := b.native[to]
	if !ok {
		dst = new(uint256.Int)
		b.native[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

func (b *Bank) TransferNFT(token common.Address, id *uint256.Int, from, to common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := nftKey(token, id)
	if b.nfts[k] != from {
		return fmt.Errorf("%w: %s id %s", ErrNotNFTOwner, token.Hex(), id.Dec())
	}
	b.nfts[k] = to
	return nil
}

func (b *Bank) TokenBalance(token, owner common.Address) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.tokens[token][owner]
	if cur == nil {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(cur), nil
}

func (b *Bank) NativeBalance(owner common.Address) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.native[owner]
	if cur == nil {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(cur), nil
}

func (b *Bank) OwnerOf(token common.Address, id *uint256.Int) (common.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nfts[nftKey(token, id)], nil
}
