// fees.go - Fee splitting with exact conservation.
//
// Every settled amount splits into (actual, serviceFee, relayerRefund)
// under a parts-per-million rate. The split is pure integer arithmetic
// with floor division; amount == actual + serviceFee + relayerRefund is a
// hard invariant, checked by tests and relied on by settlement.

package fees

import (
	"errors"

	"github.com/holiman/uint256"
)

// RateDenominator is the fee-rate base: rates are parts per million.
const RateDenominator = 1_000_000

// Lanes is the fixed lane count of the batched variant used by
// multi-asset venue operations.
const Lanes = 4

var (
	// ErrFeeExceedsAmount fires when amount < serviceFee + relayerRefund.
	ErrFeeExceedsAmount = errors.New("fees: fee exceeds amount")
	// ErrRateOutOfRange fires for rates above the denominator.
	ErrRateOutOfRange = errors.New("fees: rate out of range")
	// ErrAmountOverflow fires when the intermediate product overflows.
	ErrAmountOverflow = errors.New("fees: amount overflow")
)

// Split is one computed fee split. All three parts are freshly allocated.
type Split struct {
	Actual        *uint256.Int
	ServiceFee    *uint256.Int
	RelayerRefund *uint256.Int
}

// Calculate computes the split of a gross amount:
//
//	serviceFee = floor(amount * ratePerMillion / 1e6)
//	actual     = amount - serviceFee - relayerRefund
//
// It fails, without partial results, when the declared fees do not fit
// the amount or the product overflows 256 bits.
func Calculate(amount, relayerRefund *uint256.Int, ratePerMillion uint64) (Split, error) {
	// Nil operands mean zero; callers are not forced to allocate.
	if amount == nil {
		amount = new(uint256.Int)
	}
	if relayerRefund == nil {
		relayerRefund = new(uint256.Int)
	}
	if ratePerMillion > RateDenominator {
		return Split{}, ErrRateOutOfRange
	}
	product, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(ratePerMillion))
	if overflow {
		return Split{}, ErrAmountOverflow
	}
	serviceFee := product.Div(product, uint256.NewInt(RateDenominator))

	need, overflow := new(uint256.Int).AddOverflow(serviceFee, relayerRefund)
	if overflow || amount.Lt(need) {
		return Split{}, ErrFeeExceedsAmount
	}
	return Split{
		Actual:        new(uint256.Int).Sub(amount, need),
		ServiceFee:    serviceFee,
		RelayerRefund: new(uint256.Int).Set(relayerRefund),
	}, nil
}

// CalculateBatch applies Calculate independently to each of the four
// lanes. An empty lane (zero amount) must carry a zero refund; any lane
// failure fails the whole batch.
func CalculateBatch(amounts, refunds [Lanes]*uint256.Int, ratePerMillion uint64) ([Lanes]Split, error) {
	var out [Lanes]Split
	for i := 0; i < Lanes; i++ {
		amount, refund := amounts[i], refunds[i]
		if amount == nil {
			amount = new(uint256.Int)
		}
		if refund == nil {
			refund = new(uint256.Int)
		}
		if amount.IsZero() && !refund.IsZero() {
			return [Lanes]Split{}, ErrFeeExceedsAmount
		}
		split, err := Calculate(amount, refund, ratePerMillion)
		if err != nil {
			return [Lanes]Split{}, err
		}
		out[i] = split
	}
	return out, nil
}
