// backend.go - External value-movement boundary.
//
// Token transfer mechanics live outside the ledger; the custodian only
// drives them through this interface. Amounts observed through balance
// queries are the sole source of truth for settlement measurement.

package custody

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Backend moves value between accounts and answers balance queries.
type Backend interface {
	TransferToken(token, from, to common.Address, amount *uint256.Int) error
	TransferNative(from, to common.Address, amount *uint256.Int) error
	TransferNFT(token common.Address, id *uint256.Int, from, to common.Address) error

	TokenBalance(token, owner common.Address) (*uint256.Int, error)
	NativeBalance(owner common.Address) (*uint256.Int, error)
	OwnerOf(token common.Address, id *uint256.Int) (common.Address, error)
}
