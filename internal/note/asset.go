// asset.go - Asset identifiers and their field-safe representation.
//
// An asset is a fungible token contract, an NFT (contract, id) pair, or the
// native asset sentinel. Before an asset participates in a commitment or a
// proof input vector it is "bytified": re-hashed into a single scalar-field
// element, because the proof field is narrower than a 256-bit word.

package note

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AssetKind discriminates the three asset classes handled by the custodian.
type AssetKind uint8

const (
	AssetFungible AssetKind = iota + 1
	AssetNonFungible
	AssetNative
)

// NativeToken is the sentinel address standing in for the native asset.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Asset identifies value held by the custodian: a token contract, an NFT
// (contract, id) pair, or the native sentinel.
type Asset struct {
	Kind    AssetKind
	Token   common.Address
	TokenID *uint256.Int // only set for AssetNonFungible
}

// FungibleAsset returns the asset identifier for an ERC-20 style token.
func FungibleAsset(token common.Address) Asset {
	return Asset{Kind: AssetFungible, Token: token}
}

// NFTAsset returns the asset identifier for a single non-fungible token.
func NFTAsset(token common.Address, id *uint256.Int) Asset {
	return Asset{Kind: AssetNonFungible, Token: token, TokenID: id}
}

// NativeAsset returns the native asset sentinel.
func NativeAsset() Asset {
	return Asset{Kind: AssetNative, Token: NativeToken}
}

// IsNative reports whether the asset is the native sentinel.
func (a Asset) IsNative() bool {
	return a.Kind == AssetNative || a.Token == NativeToken
}

// Bytify maps the asset to a scalar-field element. The kind tag keeps the
// three classes disjoint under the hash; an NFT additionally binds its id.
func (a Asset) Bytify(h Hasher) *big.Int {
	tag := big.NewInt(int64(a.Kind))
	token := new(big.Int).SetBytes(a.Token.Bytes())
	id := new(big.Int)
	if a.TokenID != nil {
		id = a.TokenID.ToBig()
	}
	return HashToField(h.Hash(tag, token, id))
}

// Valid checks structural consistency of the identifier.
func (a Asset) Valid() error {
	switch a.Kind {
	case AssetFungible:
		if a.Token == (common.Address{}) {
			return fmt.Errorf("fungible asset with zero token address")
		}
	case AssetNonFungible:
		if a.Token == (common.Address{}) || a.TokenID == nil {
			return fmt.Errorf("non-fungible asset missing token or id")
		}
	case AssetNative:
	default:
		return fmt.Errorf("unknown asset kind %d", a.Kind)
	}
	return nil
}

func (a Asset) String() string {
	switch a.Kind {
	case AssetNonFungible:
		return fmt.Sprintf("nft:%s/%s", a.Token.Hex(), a.TokenID.Dec())
	case AssetNative:
		return "native"
	default:
		return fmt.Sprintf("erc20:%s", a.Token.Hex())
	}
}
