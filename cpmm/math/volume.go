package math

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/flipflop-go/shared"
)

// PrecisionScale is the fixed-point scale applied before square roots.
var PrecisionScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var hundred = decimal.NewFromInt(100)

// VolumeEstimate is the largest trade that keeps slippage within a bound.
type VolumeEstimate struct {
	Direction shared.Direction
	// Amount is the quote-side (token) amount bought or sold.
	Amount *big.Int
	// RequiredCounterpart is the base-side amount paid (buy) or received (sell).
	RequiredCounterpart *big.Int
	CurrentPrice        decimal.Decimal
	ExecutionPrice      decimal.Decimal
	// AchievedSlippage is |execution - current| / current, in percent.
	AchievedSlippage decimal.Decimal
	K                *big.Int
}

// MaxVolumeForSlippage solves for the trade on a base/quote pool whose
// execution moves the price base/quote by at most maxSlippagePercent.
// A buy spends base and removes quote from the pool; a sell adds quote.
func MaxVolumeForSlippage(base, quote *big.Int, maxSlippagePercent decimal.Decimal, direction shared.Direction) (*VolumeEstimate, error) {
	if err := checkReserves(base, quote); err != nil {
		return nil, err
	}
	if !maxSlippagePercent.IsPositive() || maxSlippagePercent.GreaterThanOrEqual(hundred) {
		return nil, shared.Errorf(shared.KindInvalidArgument, "max slippage %s%% must be in (0, 100)", maxSlippagePercent)
	}

	factor := decimal.NewFromInt(1)
	if direction == shared.DirectionBuy {
		factor = factor.Add(maxSlippagePercent.Div(hundred))
	} else {
		factor = factor.Sub(maxSlippagePercent.Div(hundred))
	}
	scaledFactor := factor.Shift(18).Truncate(0).BigInt()

	// target = base/quote * factor, scaled by 1e18
	target := new(big.Int).Mul(base, scaledFactor)
	target.Quo(target, quote)
	if target.Sign() == 0 {
		return nil, shared.Errorf(shared.KindSlippageUnachievable, "target price rounds to zero")
	}

	k := new(big.Int).Mul(base, quote)
	scaled := new(big.Int).Mul(k, PrecisionScale)
	scaled.Quo(scaled, target)
	newQuote := IntSqrt(scaled)

	var amount, required *big.Int
	switch direction {
	case shared.DirectionBuy:
		if newQuote.Sign() == 0 || newQuote.Cmp(quote) >= 0 {
			return nil, shared.Errorf(shared.KindSlippageUnachievable, "pool too shallow for %s%% on buy", maxSlippagePercent)
		}
		amount = new(big.Int).Sub(quote, newQuote)
		newBase := new(big.Int).Quo(k, newQuote)
		required = newBase.Sub(newBase, base)
	default:
		if newQuote.Cmp(quote) <= 0 {
			return nil, shared.Errorf(shared.KindSlippageUnachievable, "pool too shallow for %s%% on sell", maxSlippagePercent)
		}
		amount = new(big.Int).Sub(newQuote, quote)
		newBase := new(big.Int).Quo(k, newQuote)
		required = new(big.Int).Sub(base, newBase)
	}
	if amount.Sign() == 0 {
		return nil, shared.Errorf(shared.KindSlippageUnachievable, "bound admits no trade")
	}
	// the base side is too coarse to price the move
	if required.Sign() <= 0 {
		return nil, shared.Errorf(shared.KindSlippageUnachievable, "trade of %s moves no base on a %s/%s pool", amount, base, quote)
	}

	current := Price(base, quote)
	execution := Price(required, amount)
	achieved := SlippagePercent(current, execution)
	if achieved.GreaterThan(maxSlippagePercent) {
		return nil, shared.Errorf(shared.KindSlippageUnachievable, "best trade slips %s%%, above %s%%", achieved.StringFixed(4), maxSlippagePercent)
	}
	return &VolumeEstimate{
		Direction:           direction,
		Amount:              amount,
		RequiredCounterpart: required,
		CurrentPrice:        current,
		ExecutionPrice:      execution,
		AchievedSlippage:    achieved,
		K:                   k,
	}, nil
}

// SlippageEstimate is the price impact of a given trade.
type SlippageEstimate struct {
	Direction           shared.Direction
	Amount              *big.Int
	RequiredCounterpart *big.Int
	CurrentPrice        decimal.Decimal
	ExecutionPrice      decimal.Decimal
	Slippage            decimal.Decimal
}

// EstimateSlippage prices a trade of amount quote tokens against the pool.
func EstimateSlippage(base, quote, amount *big.Int, direction shared.Direction) (*SlippageEstimate, error) {
	if err := checkReserves(base, quote); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, shared.Errorf(shared.KindInvalidArgument, "amount must be positive")
	}
	k := new(big.Int).Mul(base, quote)

	var required *big.Int
	switch direction {
	case shared.DirectionBuy:
		newQuote := new(big.Int).Sub(quote, amount)
		if newQuote.Sign() <= 0 {
			return nil, shared.Errorf(shared.KindInsufficientLiquidity, "buy of %s exceeds reserve %s", amount, quote)
		}
		newBase := new(big.Int).Quo(k, newQuote)
		required = newBase.Sub(newBase, base)
	default:
		newQuote := new(big.Int).Add(quote, amount)
		newBase := new(big.Int).Quo(k, newQuote)
		if newBase.Cmp(base) >= 0 {
			return nil, shared.Errorf(shared.KindSlippageUnachievable, "sell of %s does not move the pool", amount)
		}
		required = new(big.Int).Sub(base, newBase)
	}

	current := Price(base, quote)
	execution := Price(required, amount)
	return &SlippageEstimate{
		Direction:           direction,
		Amount:              new(big.Int).Set(amount),
		RequiredCounterpart: required,
		CurrentPrice:        current,
		ExecutionPrice:      execution,
		Slippage:            SlippagePercent(current, execution),
	}, nil
}

// SlippagePercent is |execution - current| / current * 100.
func SlippagePercent(current, execution decimal.Decimal) decimal.Decimal {
	if current.IsZero() {
		return decimal.Zero
	}
	return execution.Sub(current).Abs().DivRound(current, 18).Mul(hundred)
}
