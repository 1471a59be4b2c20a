package cpmm

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	cpmath "github.com/krazyTry/flipflop-go/cpmm/math"
	"github.com/krazyTry/flipflop-go/engine"
	"github.com/krazyTry/flipflop-go/shared"
	"github.com/krazyTry/flipflop-go/solana/token2022"
)

// SwapParams describes one swap. Amounts are raw base units.
type SwapParams struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Kind       shared.SwapKind
	// Amount is the exact input for SwapExactIn and the exact output for SwapExactOut.
	Amount      *big.Int
	SlippageBps uint64
	// PoolID skips the pool lookup by mint pair when set.
	PoolID solana.PublicKey
	DryRun bool
}

func (p SwapParams) validate() error {
	switch {
	case p.InputMint.IsZero() || p.OutputMint.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "input and output mint are required")
	case p.InputMint.Equals(p.OutputMint):
		return shared.Errorf(shared.KindInvalidArgument, "input and output mint must differ")
	case p.Amount == nil || p.Amount.Sign() <= 0:
		return shared.Errorf(shared.KindInvalidArgument, "amount must be positive")
	case !cpmath.IsUint64(p.Amount):
		return shared.Errorf(shared.KindInvalidArgument, "amount %s does not fit u64", p.Amount)
	case p.SlippageBps == 0 || p.SlippageBps >= cpmath.BasisPointMax:
		return shared.Errorf(shared.KindInvalidArgument, "slippage %d bps must be in (0, 10000)", p.SlippageBps)
	}
	return nil
}

// SwapQuote is the client-side quote of a swap plus the bound sent to the program.
type SwapQuote struct {
	Pool       solana.PublicKey
	Kind       shared.SwapKind
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	AmountIn   *big.Int
	AmountOut  *big.Int
	// Bound is the minimum output of an exact-in swap or the maximum input of an exact-out swap.
	Bound       *big.Int
	SlippageBps uint64
	// Price is input per output at execution; SpotPrice the same before the trade.
	Price       decimal.Decimal
	SpotPrice   decimal.Decimal
	PriceImpact decimal.Decimal
	// Transfer fees a Token-2022 mint charges on top; informational only.
	InputTransferFee  *big.Int
	OutputTransferFee *big.Int
}

func quoteSwap(pool *Pool, params SwapParams) (*SwapQuote, error) {
	in, out, err := pool.Sides(params.InputMint, params.OutputMint)
	if err != nil {
		return nil, err
	}
	q := &SwapQuote{
		Pool:        pool.Address,
		Kind:        params.Kind,
		InputMint:   params.InputMint,
		OutputMint:  params.OutputMint,
		SlippageBps: params.SlippageBps,
		SpotPrice:   cpmath.Price(in.Reserve, out.Reserve),
	}

	switch params.Kind {
	case shared.SwapExactIn:
		q.AmountIn = new(big.Int).Set(params.Amount)
		if q.AmountOut, err = cpmath.QuoteExactIn(in.Reserve, out.Reserve, q.AmountIn); err != nil {
			return nil, err
		}
		if q.AmountOut.Sign() == 0 {
			return nil, shared.Errorf(shared.KindInsufficientLiquidity, "%s in buys nothing from pool %s", q.AmountIn, pool.Address)
		}
		q.Bound = cpmath.MinWithSlippage(q.AmountOut, params.SlippageBps)
	case shared.SwapExactOut:
		q.AmountOut = new(big.Int).Set(params.Amount)
		if q.AmountIn, err = cpmath.QuoteExactOut(in.Reserve, out.Reserve, q.AmountOut); err != nil {
			return nil, err
		}
		q.Bound = cpmath.MaxWithSlippage(q.AmountIn, params.SlippageBps)
		if !cpmath.IsUint64(q.Bound) {
			return nil, shared.Errorf(shared.KindInsufficientLiquidity, "max input %s does not fit u64", q.Bound)
		}
	default:
		return nil, shared.Errorf(shared.KindInvalidArgument, "unknown swap kind %d", params.Kind)
	}

	q.Price = cpmath.Price(q.AmountIn, q.AmountOut)
	q.PriceImpact = cpmath.SlippagePercent(q.SpotPrice, q.Price)
	q.InputTransferFee = token2022.MaxFee(in.Mint.TransferFee, q.AmountIn)
	q.OutputTransferFee = token2022.MaxFee(out.Mint.TransferFee, q.AmountOut)
	return q, nil
}

func (c *Cpmm) fetchFor(ctx context.Context, poolID, mintA, mintB solana.PublicKey) (*Pool, error) {
	if !poolID.IsZero() {
		return c.FetchPoolByID(ctx, poolID)
	}
	return c.FetchPool(ctx, mintA, mintB)
}

// QuoteSwap prices a swap against fresh pool state without building a plan.
func (c *Cpmm) QuoteSwap(ctx context.Context, params SwapParams) *shared.Result[*SwapQuote] {
	var (
		pool  *Pool
		quote *SwapQuote
	)
	return engine.Run(ctx, c.executor, engine.Operation[*SwapQuote]{
		Name: "quote_swap",
		Validate: func(ctx context.Context) (err error) {
			if err = params.validate(); err != nil {
				return err
			}
			pool, err = c.fetchFor(ctx, params.PoolID, params.InputMint, params.OutputMint)
			return err
		},
		Quote: func(context.Context) (err error) {
			quote, err = quoteSwap(pool, params)
			return err
		},
		Preview: func() *SwapQuote { return quote },
	})
}

// EstimateVolume solves for the largest trade of token against the base mint
// that keeps slippage within maxSlippagePercent.
func (c *Cpmm) EstimateVolume(ctx context.Context, token solana.PublicKey, maxSlippagePercent decimal.Decimal, direction shared.Direction) (*cpmath.VolumeEstimate, error) {
	base, quote, err := c.baseAndQuote(ctx, token)
	if err != nil {
		return nil, err
	}
	return cpmath.MaxVolumeForSlippage(base, quote, maxSlippagePercent, direction)
}

// EstimateSlippage prices buying or selling amount of token against the base mint.
func (c *Cpmm) EstimateSlippage(ctx context.Context, token solana.PublicKey, amount *big.Int, direction shared.Direction) (*cpmath.SlippageEstimate, error) {
	base, quote, err := c.baseAndQuote(ctx, token)
	if err != nil {
		return nil, err
	}
	return cpmath.EstimateSlippage(base, quote, amount, direction)
}

func (c *Cpmm) baseAndQuote(ctx context.Context, token solana.PublicKey) (*big.Int, *big.Int, error) {
	pool, err := c.FetchPool(ctx, c.desc.BaseMint, token)
	if err != nil {
		return nil, nil, err
	}
	base, quote, err := pool.Sides(c.desc.BaseMint, token)
	if err != nil {
		return nil, nil, err
	}
	return base.Reserve, quote.Reserve, nil
}
