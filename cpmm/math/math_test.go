package math

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/flipflop-go/shared"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func TestQuoteExactIn(t *testing.T) {
	// 10_000*500_000/1_010_000 = 4950.49
	out, err := QuoteExactIn(bi(1_000_000), bi(500_000), bi(10_000))
	require.NoError(t, err)
	assert.Equal(t, int64(4950), out.Int64())

	in, err := QuoteExactOut(bi(1_000_000), bi(500_000), bi(4950))
	require.NoError(t, err)
	assert.Equal(t, int64(9998), in.Int64())

	out, err = QuoteExactIn(bi(1_000_000), bi(500_000), bi(0))
	require.NoError(t, err)
	assert.Zero(t, out.Sign())
}

func TestQuoteZeroReserve(t *testing.T) {
	_, err := QuoteExactIn(bi(0), bi(10), bi(1))
	assert.True(t, errors.Is(err, shared.ErrZeroReserve))

	_, err = QuoteExactOut(bi(10), bi(-1), bi(1))
	assert.True(t, errors.Is(err, shared.ErrZeroReserve))
}

func TestQuoteExactOutInsufficientLiquidity(t *testing.T) {
	_, err := QuoteExactOut(bi(1_000), bi(500), bi(500))
	assert.True(t, errors.Is(err, shared.ErrInsufficientLiquidity))

	_, err = QuoteExactOut(bi(1_000), bi(500), bi(501))
	assert.Equal(t, shared.KindInsufficientLiquidity, shared.KindOf(err))
}

func TestQuoteRoundTripNeverFavorsCaller(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		rIn := bi(rng.Int63n(1e15) + 1)
		rOut := bi(rng.Int63n(1e15) + 1)
		in := bi(rng.Int63n(1e12) + 1)

		out, err := QuoteExactIn(rIn, rOut, in)
		require.NoError(t, err)

		back, err := QuoteExactOut(rIn, rOut, out)
		require.NoError(t, err)
		assert.LessOrEqual(t, back.Cmp(in), 0, "rIn=%s rOut=%s in=%s", rIn, rOut, in)

		// k only grows, by less than one unit of output at the new input reserve
		k := new(big.Int).Mul(rIn, rOut)
		newIn := new(big.Int).Add(rIn, in)
		after := new(big.Int).Mul(newIn, new(big.Int).Sub(rOut, out))
		assert.GreaterOrEqual(t, after.Cmp(k), 0)
		assert.Less(t, new(big.Int).Sub(after, k).Cmp(newIn), 0)
	}
}

func TestSlippageBounds(t *testing.T) {
	assert.Equal(t, int64(9_900), MinWithSlippage(bi(10_000), 100).Int64())
	assert.Equal(t, int64(10_500), MaxWithSlippage(bi(10_000), 500).Int64())
	assert.Equal(t, int64(0), MinWithSlippage(bi(10_000), BasisPointMax).Int64())

	bps, err := BpsFromPercent(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(150), bps)

	for _, bad := range []string{"0", "-1", "100", "0.001"} {
		_, err := BpsFromPercent(decimal.RequireFromString(bad))
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument), bad)
	}
}

func TestIntSqrt(t *testing.T) {
	cases := []int64{0, 1, 2, 3, 4, 15, 16, 17, 99, 100, 1 << 40, 999_999_999_999}
	for _, c := range cases {
		assertSqrt(t, bi(c))
	}

	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	assertSqrt(t, huge)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		root := bi(rng.Int63() + 1)
		square := new(big.Int).Mul(root, root)
		assert.Equal(t, 0, IntSqrt(square).Cmp(root))
		assertSqrt(t, new(big.Int).Sub(square, bigOne))
	}
}

func assertSqrt(t *testing.T, x *big.Int) {
	t.Helper()
	r := IntSqrt(x)
	lo := new(big.Int).Mul(r, r)
	next := new(big.Int).Add(r, bigOne)
	hi := new(big.Int).Mul(next, next)
	assert.LessOrEqual(t, lo.Cmp(x), 0, "sqrt(%s)=%s", x, r)
	assert.Equal(t, 1, hi.Cmp(x), "sqrt(%s)=%s", x, r)
}

func TestMaxVolumeForSlippageBuy(t *testing.T) {
	est, err := MaxVolumeForSlippage(bi(1_000_000), bi(1_000_000), decimal.NewFromInt(1), shared.DirectionBuy)
	require.NoError(t, err)
	assert.Equal(t, int64(4963), est.Amount.Int64())
	assert.Equal(t, int64(4987), est.RequiredCounterpart.Int64())
	assert.True(t, est.AchievedSlippage.LessThanOrEqual(decimal.RequireFromString("1.0001")), est.AchievedSlippage.String())

	// feeding the counterpart back through the quote lands within a unit of the amount
	out, err := QuoteExactIn(bi(1_000_000), bi(1_000_000), est.RequiredCounterpart)
	require.NoError(t, err)
	assert.LessOrEqual(t, new(big.Int).Sub(est.Amount, out).CmpAbs(bigOne), 0)
	exec := Price(est.RequiredCounterpart, out)
	assert.True(t, SlippagePercent(est.CurrentPrice, exec).LessThanOrEqual(decimal.RequireFromString("1.0001")))
}

func TestMaxVolumeForSlippageSell(t *testing.T) {
	est, err := MaxVolumeForSlippage(bi(2_000_000_000), bi(1_000_000_000), decimal.NewFromInt(2), shared.DirectionSell)
	require.NoError(t, err)
	assert.Positive(t, est.Amount.Sign())
	assert.Positive(t, est.RequiredCounterpart.Sign())
	assert.True(t, est.AchievedSlippage.LessThanOrEqual(decimal.RequireFromString("2.0001")), est.AchievedSlippage.String())
}

func TestMaxVolumeForSlippageUnachievable(t *testing.T) {
	// a one-unit quote side cannot move by a fraction of a unit
	_, err := MaxVolumeForSlippage(bi(1_000_000), bi(1), decimal.NewFromInt(1), shared.DirectionBuy)
	assert.True(t, errors.Is(err, shared.ErrSlippageUnachievable))

	// the base side floors back to itself: the trade would cost nothing
	est, err := MaxVolumeForSlippage(bi(1), bi(1_000_000_000_000_000), decimal.RequireFromString("0.5"), shared.DirectionBuy)
	assert.True(t, errors.Is(err, shared.ErrSlippageUnachievable), "%+v", est)

	// selling into the same pool pays out the single base unit, far past the bound
	est, err = MaxVolumeForSlippage(bi(1), bi(1_000_000_000_000_000), decimal.RequireFromString("0.5"), shared.DirectionSell)
	assert.True(t, errors.Is(err, shared.ErrSlippageUnachievable), "%+v", est)

	_, err = MaxVolumeForSlippage(bi(0), bi(1), decimal.NewFromInt(1), shared.DirectionBuy)
	assert.True(t, errors.Is(err, shared.ErrZeroReserve))

	_, err = MaxVolumeForSlippage(bi(10), bi(10), decimal.NewFromInt(100), shared.DirectionSell)
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
}

func TestMaxVolumeForSlippageNeverExceedsBound(t *testing.T) {
	pools := [][2]int64{{1, 1_000_000}, {3, 1_000_000}, {1_000_000, 3}, {7, 11}, {1_000_000, 1_000_000}, {2_000_000_000, 1_000_000_000}}
	for _, p := range pools {
		for _, dir := range []shared.Direction{shared.DirectionBuy, shared.DirectionSell} {
			for _, pct := range []string{"0.5", "1", "5", "50"} {
				bound := decimal.RequireFromString(pct)
				est, err := MaxVolumeForSlippage(bi(p[0]), bi(p[1]), bound, dir)
				if err != nil {
					assert.True(t, errors.Is(err, shared.ErrSlippageUnachievable), "%v %v %s: %v", p, dir, pct, err)
					continue
				}
				assert.Positive(t, est.Amount.Sign())
				assert.Positive(t, est.RequiredCounterpart.Sign(), "%v %v %s", p, dir, pct)
				assert.True(t, est.AchievedSlippage.LessThanOrEqual(bound), "%v %v %s: %s", p, dir, pct, est.AchievedSlippage)
			}
		}
	}
}

func TestEstimateSlippage(t *testing.T) {
	est, err := EstimateSlippage(bi(1_000_000), bi(1_000_000), bi(4963), shared.DirectionBuy)
	require.NoError(t, err)
	assert.Equal(t, int64(4987), est.RequiredCounterpart.Int64())
	assert.True(t, est.Slippage.LessThan(decimal.NewFromInt(1)))

	_, err = EstimateSlippage(bi(1_000_000), bi(1_000_000), bi(1_000_000), shared.DirectionBuy)
	assert.True(t, errors.Is(err, shared.ErrInsufficientLiquidity))

	sell, err := EstimateSlippage(bi(1_000_000), bi(1_000_000), bi(10_000), shared.DirectionSell)
	require.NoError(t, err)
	assert.Equal(t, int64(9901), sell.RequiredCounterpart.Int64())
}

func TestAddLiquidityQuoteEmptyPool(t *testing.T) {
	res, err := AddLiquidityQuote(bi(0), bi(0), bi(0), bi(1000), bi(2000))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Share.Int64())
	assert.Equal(t, int64(2000), res.CounterpartB.Int64())

	_, err = AddLiquidityQuote(bi(0), bi(0), bi(0), bi(1000), nil)
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
}

func TestAddLiquidityQuoteProportional(t *testing.T) {
	res, err := AddLiquidityQuote(bi(1_000), bi(3_001), bi(500), bi(10), nil)
	require.NoError(t, err)
	// ceil(10*3001/1000) = 31
	assert.Equal(t, int64(31), res.CounterpartB.Int64())
	assert.Equal(t, int64(5), res.Share.Int64())
}

func TestProportionUndefined(t *testing.T) {
	_, err := AddLiquidityQuote(bi(0), bi(10), bi(10), bi(1), nil)
	assert.True(t, errors.Is(err, shared.ErrProportionUndefined))

	_, err = RemoveLiquidityQuote(bi(10), bi(0), bi(10), bi(1))
	assert.True(t, errors.Is(err, shared.ErrProportionUndefined))

	_, err = RemoveLiquidityQuote(bi(10), bi(10), bi(0), bi(1))
	assert.True(t, errors.Is(err, shared.ErrProportionUndefined))
}

func TestRemoveLiquidityQuote(t *testing.T) {
	res, err := RemoveLiquidityQuote(bi(1_000_000), bi(500_000), bi(100_000), bi(2_500))
	require.NoError(t, err)
	assert.Equal(t, int64(25_000), res.AmountA.Int64())
	assert.Equal(t, int64(12_500), res.AmountB.Int64())

	_, err = RemoveLiquidityQuote(bi(1_000_000), bi(500_000), bi(100_000), bi(100_001))
	assert.True(t, errors.Is(err, shared.ErrInsufficientLiquidity))
}

func TestLiquidityRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		rA := bi(rng.Int63n(1e12) + 1_000)
		rB := bi(rng.Int63n(1e12) + 1_000)
		supply := bi(rng.Int63n(1e12) + 1_000)
		amount := bi(rng.Int63n(rA.Int64()) + 1)

		add, err := AddLiquidityQuote(rA, rB, supply, amount, nil)
		require.NoError(t, err)
		if add.Share.Sign() == 0 {
			continue
		}
		rem, err := RemoveLiquidityQuote(rA, rB, supply, add.Share)
		require.NoError(t, err)

		// never more than supplied; short by at most one share's worth plus one unit
		assert.LessOrEqual(t, rem.AmountA.Cmp(add.AmountA), 0)
		assert.LessOrEqual(t, rem.AmountB.Cmp(add.CounterpartB), 0)
		slackA := new(big.Int).Add(ceilDiv(rA, supply), bigOne)
		assert.LessOrEqual(t, new(big.Int).Sub(add.AmountA, rem.AmountA).Cmp(slackA), 0)

		// claims never exceed reserves
		assert.LessOrEqual(t, rem.AmountA.Cmp(rA), 0)
		assert.LessOrEqual(t, rem.AmountB.Cmp(rB), 0)
	}
}

func TestSharePercent(t *testing.T) {
	assert.Equal(t, "12.34", SharePercent(bi(1234), bi(10_000)).StringFixed(2))
	assert.True(t, SharePercent(bi(1), bi(0)).IsZero())
}
