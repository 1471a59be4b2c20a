package math

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/flipflop-go/shared"
)

// AddLiquidityResult is the counterpart and LP share for a deposit.
type AddLiquidityResult struct {
	AmountA *big.Int
	// CounterpartB is the side-B amount matching AmountA at the pool ratio.
	CounterpartB *big.Int
	Share        *big.Int
}

// RemoveLiquidityResult is what burning a share returns on each side.
type RemoveLiquidityResult struct {
	Share   *big.Int
	AmountA *big.Int
	AmountB *big.Int
}

func checkProportion(reserveA, reserveB, supply *big.Int) error {
	if supply == nil || supply.Sign() < 0 {
		return shared.Errorf(shared.KindInvalidArgument, "share supply must not be negative")
	}
	if supply.Sign() == 0 {
		return nil
	}
	if reserveA == nil || reserveB == nil || reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return shared.Errorf(shared.KindProportionUndefined, "supply %s with an empty reserve", supply)
	}
	return nil
}

// AddLiquidityQuote prices a deposit of amountA on side A.
//
// For an empty pool (supply == 0) both amounts are taken as given and the
// initial share is min(amountA, amountB). Otherwise the counterpart is
// ceil(amountA*reserveB/reserveA) and the share is the smaller of the two
// proportional shares, so the deposit never claims more than it brings.
func AddLiquidityQuote(reserveA, reserveB, supply, amountA, amountB *big.Int) (*AddLiquidityResult, error) {
	if err := checkProportion(reserveA, reserveB, supply); err != nil {
		return nil, err
	}
	if amountA == nil || amountA.Sign() <= 0 {
		return nil, shared.Errorf(shared.KindInvalidArgument, "deposit amount must be positive")
	}

	if supply.Sign() == 0 {
		if amountB == nil || amountB.Sign() <= 0 {
			return nil, shared.Errorf(shared.KindInvalidArgument, "first deposit needs both amounts")
		}
		share := new(big.Int).Set(amountA)
		if amountB.Cmp(share) < 0 {
			share.Set(amountB)
		}
		return &AddLiquidityResult{
			AmountA:      new(big.Int).Set(amountA),
			CounterpartB: new(big.Int).Set(amountB),
			Share:        share,
		}, nil
	}

	counterpart := new(big.Int).Mul(amountA, reserveB)
	counterpart = ceilDiv(counterpart, reserveA)

	shareA := new(big.Int).Mul(amountA, supply)
	shareA.Quo(shareA, reserveA)
	shareB := new(big.Int).Mul(counterpart, supply)
	shareB.Quo(shareB, reserveB)
	if shareB.Cmp(shareA) < 0 {
		shareA = shareB
	}
	return &AddLiquidityResult{
		AmountA:      new(big.Int).Set(amountA),
		CounterpartB: counterpart,
		Share:        shareA,
	}, nil
}

// RemoveLiquidityQuote returns share*reserveX/supply for each side, floored.
func RemoveLiquidityQuote(reserveA, reserveB, supply, share *big.Int) (*RemoveLiquidityResult, error) {
	if err := checkProportion(reserveA, reserveB, supply); err != nil {
		return nil, err
	}
	if supply.Sign() == 0 {
		return nil, shared.Errorf(shared.KindProportionUndefined, "pool has no share supply")
	}
	if share == nil || share.Sign() <= 0 {
		return nil, shared.Errorf(shared.KindInvalidArgument, "share must be positive")
	}
	if share.Cmp(supply) > 0 {
		return nil, shared.Errorf(shared.KindInsufficientLiquidity, "share %s exceeds supply %s", share, supply)
	}
	amountA := new(big.Int).Mul(share, reserveA)
	amountA.Quo(amountA, supply)
	amountB := new(big.Int).Mul(share, reserveB)
	amountB.Quo(amountB, supply)
	return &RemoveLiquidityResult{
		Share:   new(big.Int).Set(share),
		AmountA: amountA,
		AmountB: amountB,
	}, nil
}

// SharePercent is share/supply as a percentage with two decimals, truncated.
func SharePercent(share, supply *big.Int) decimal.Decimal {
	if supply == nil || supply.Sign() == 0 || share == nil {
		return decimal.Zero
	}
	bps := new(big.Int).Mul(share, bigBpsMax)
	bps.Quo(bps, supply)
	return decimal.NewFromBigInt(bps, -2)
}

func ceilDiv(n, d *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, bigOne)
	}
	return q
}
