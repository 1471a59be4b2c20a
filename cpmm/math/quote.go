package math

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/flipflop-go/shared"
)

const BasisPointMax = 10_000

var (
	bigOne    = big.NewInt(1)
	bigBpsMax = big.NewInt(BasisPointMax)
)

func checkReserves(reserves ...*big.Int) error {
	for _, r := range reserves {
		if r == nil || r.Sign() <= 0 {
			return shared.Errorf(shared.KindZeroReserve, "reserve must be positive")
		}
	}
	return nil
}

// QuoteExactIn returns amountIn*reserveOut/(reserveIn+amountIn), floored.
// This is reserveOut - k/(reserveIn+amountIn) with the rounding taken on
// the output, so the product of the reserves never shrinks. Fees are left
// to the program.
func QuoteExactIn(reserveIn, reserveOut, amountIn *big.Int) (*big.Int, error) {
	if err := checkReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, shared.Errorf(shared.KindInvalidArgument, "amount in must not be negative")
	}
	out := new(big.Int).Mul(amountIn, reserveOut)
	return out.Quo(out, new(big.Int).Add(reserveIn, amountIn)), nil
}

// QuoteExactOut returns amountOut*reserveIn/(reserveOut-amountOut), floored,
// which is k/(reserveOut-amountOut) - reserveIn.
func QuoteExactOut(reserveIn, reserveOut, amountOut *big.Int) (*big.Int, error) {
	if err := checkReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil, shared.Errorf(shared.KindInvalidArgument, "amount out must not be negative")
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, shared.Errorf(shared.KindInsufficientLiquidity, "amount out %s exceeds reserve %s", amountOut, reserveOut)
	}
	in := new(big.Int).Mul(amountOut, reserveIn)
	return in.Quo(in, new(big.Int).Sub(reserveOut, amountOut)), nil
}

// MinWithSlippage is the least acceptable amount: amount*(10000-bps)/10000.
func MinWithSlippage(amount *big.Int, bps uint64) *big.Int {
	if bps >= BasisPointMax {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, big.NewInt(int64(BasisPointMax-bps)))
	return out.Quo(out, bigBpsMax)
}

// MaxWithSlippage is the greatest acceptable amount: amount*(10000+bps)/10000.
func MaxWithSlippage(amount *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(BasisPointMax+bps))
	return out.Quo(out, bigBpsMax)
}

// BpsFromPercent converts a percentage such as 1.5 to 150 bps, truncating.
func BpsFromPercent(percent decimal.Decimal) (uint64, error) {
	if !percent.IsPositive() || percent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return 0, shared.Errorf(shared.KindInvalidArgument, "slippage %s%% must be in (0, 100)", percent)
	}
	bps := percent.Mul(decimal.NewFromInt(100)).Truncate(0).IntPart()
	if bps == 0 {
		return 0, shared.Errorf(shared.KindInvalidArgument, "slippage %s%% is below one basis point", percent)
	}
	return uint64(bps), nil
}

// Price is base/quote as a decimal.
func Price(base, quote *big.Int) decimal.Decimal {
	if quote.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(base, 0).DivRound(decimal.NewFromBigInt(quote, 0), 18)
}

// IsUint64 reports whether v fits an instruction argument.
func IsUint64(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.IsUint64()
}
