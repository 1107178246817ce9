// dto.go - Wire types for the HTTP surface.
//
// Hashes and addresses travel as 0x-hex; amounts as hex quantities. The
// JSON shapes mirror the engine argument structs one to one.

package api

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/engine"
	"github.com/shadepool/shade/internal/note"
)

type assetDTO struct {
	Kind    uint8          `json:"kind"`
	Token   common.Address `json:"token"`
	TokenID *hexutil.Big   `json:"tokenId,omitempty"`
}

func (a assetDTO) toAsset() (note.Asset, error) {
	asset := note.Asset{Kind: note.AssetKind(a.Kind), Token: a.Token}
	if a.TokenID != nil {
		id, overflow := uint256.FromBig(a.TokenID.ToInt())
		if overflow {
			return note.Asset{}, fmt.Errorf("token id overflows 256 bits")
		}
		asset.TokenID = id
	}
	return asset, asset.Valid()
}

func assetFrom(a note.Asset) assetDTO {
	d := assetDTO{Kind: uint8(a.Kind), Token: a.Token}
	if a.TokenID != nil {
		d.TokenID = (*hexutil.Big)(a.TokenID.ToBig())
	}
	return d
}

func amountFrom(b *hexutil.Big) (*uint256.Int, error) {
	if b == nil {
		return new(uint256.Int), nil
	}
	v, overflow := uint256.FromBig(b.ToInt())
	if overflow {
		return nil, fmt.Errorf("amount overflows 256 bits")
	}
	return v, nil
}

type depositRequest struct {
	Depositor  common.Address `json:"depositor"`
	Domain     uint8          `json:"domain"`
	Asset      assetDTO       `json:"asset"`
	Amount     *hexutil.Big   `json:"amount"`
	Footer     common.Hash    `json:"footer"`
	Commitment common.Hash    `json:"commitment"`
	Proof      hexutil.Bytes  `json:"proof"`
}

type withdrawRequest struct {
	Caller        common.Address `json:"caller"`
	Root          common.Hash    `json:"root"`
	Nullifier     common.Hash    `json:"nullifier"`
	Domain        uint8          `json:"domain"`
	Asset         assetDTO       `json:"asset"`
	Amount        *hexutil.Big   `json:"amount"`
	Recipient     common.Address `json:"recipient"`
	Relayer       common.Address `json:"relayer"`
	RelayerRefund *hexutil.Big   `json:"relayerRefund"`
	Proof         hexutil.Bytes  `json:"proof"`
}

type spendRequest struct {
	Caller         common.Address `json:"caller"`
	Root           common.Hash    `json:"root"`
	Domain         uint8          `json:"domain"`
	Asset          assetDTO       `json:"asset"`
	Nullifiers     []common.Hash  `json:"nullifiers"`
	NewCommitments []common.Hash  `json:"newCommitments"`
	Footers        []common.Hash  `json:"footers"`
	Proof          hexutil.Bytes  `json:"proof"`
}

func (r spendRequest) toArgs() (engine.SpendArgs, error) {
	asset, err := r.Asset.toAsset()
	if err != nil {
		return engine.SpendArgs{}, err
	}
	return engine.SpendArgs{
		Caller:         r.Caller,
		Root:           r.Root,
		Domain:         note.Domain(r.Domain),
		Asset:          asset,
		Nullifiers:     r.Nullifiers,
		NewCommitments: r.NewCommitments,
		Footers:        r.Footers,
		Proof:          r.Proof,
	}, nil
}

type swapRequest struct {
	Caller        common.Address `json:"caller"`
	Root          common.Hash    `json:"root"`
	Nullifier     common.Hash    `json:"nullifier"`
	NewCommitment common.Hash    `json:"newCommitment"`
	OutFooter     common.Hash    `json:"outFooter"`
	Domain        uint8          `json:"domain"`
	AssetIn       assetDTO       `json:"assetIn"`
	AmountIn      *hexutil.Big   `json:"amountIn"`
	AssetOut      assetDTO       `json:"assetOut"`
	MinOut        *hexutil.Big   `json:"minOut"`
	CallData      hexutil.Bytes  `json:"callData"`
	Proof         hexutil.Bytes  `json:"proof"`
}

type venueLaneDTO struct {
	Nullifier     common.Hash  `json:"nullifier"`
	NewCommitment common.Hash  `json:"newCommitment"`
	OutFooter     common.Hash  `json:"outFooter"`
	AssetIn       assetDTO     `json:"assetIn"`
	AmountIn      *hexutil.Big `json:"amountIn"`
	AssetOut      assetDTO     `json:"assetOut"`
	MinOut        *hexutil.Big `json:"minOut"`
	RelayerRefund *hexutil.Big `json:"relayerRefund"`
}

type defiCallRequest struct {
	Caller   common.Address `json:"caller"`
	Relayer  common.Address `json:"relayer"`
	Root     common.Hash    `json:"root"`
	Domain   uint8          `json:"domain"`
	Lanes    []venueLaneDTO `json:"lanes"`
	CallData hexutil.Bytes  `json:"callData"`
	Proof    hexutil.Bytes  `json:"proof"`
}

type receiptResponse struct {
	Operation   string         `json:"operation"`
	Nullifiers  []common.Hash  `json:"nullifiers,omitempty"`
	Commitments []common.Hash  `json:"commitments,omitempty"`
	Footers     []common.Hash  `json:"footers,omitempty"`
	Assets      []assetDTO     `json:"assets,omitempty"`
	Amounts     []*hexutil.Big `json:"amounts,omitempty"`
	MeasuredOut []*hexutil.Big `json:"measuredOut,omitempty"`
	Root        common.Hash    `json:"root"`
	LeafIndices []uint64       `json:"leafIndices,omitempty"`
}

func receiptFrom(r *engine.Receipt) receiptResponse {
	resp := receiptResponse{
		Operation:   r.Operation,
		Nullifiers:  r.Nullifiers,
		Commitments: r.Commitments,
		Footers:     r.Footers,
		Root:        r.Root,
		LeafIndices: r.LeafIndices,
	}
	for _, a := range r.Assets {
		resp.Assets = append(resp.Assets, assetFrom(a))
	}
	for _, v := range r.Amounts {
		resp.Amounts = append(resp.Amounts, (*hexutil.Big)(v.ToBig()))
	}
	for _, v := range r.MeasuredOut {
		resp.MeasuredOut = append(resp.MeasuredOut, (*hexutil.Big)(v.ToBig()))
	}
	return resp
}

type pathResponse struct {
	Siblings   []common.Hash `json:"siblings"`
	Directions []bool        `json:"directions"`
	Root       common.Hash   `json:"root"`
}

type errorResponse struct {
	Error string `json:"error"`
}
