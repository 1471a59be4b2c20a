package cpmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	cpmath "github.com/krazyTry/flipflop-go/cpmm/math"
	"github.com/krazyTry/flipflop-go/engine"
	raydiumcp "github.com/krazyTry/flipflop-go/gen/raydium_cp"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
	"github.com/krazyTry/flipflop-go/solana/token2022"
)

// DefaultRemoveSlippageBps bounds withdrawals when the caller gives no slippage.
const DefaultRemoveSlippageBps = uint64(100)

var hundred = decimal.NewFromInt(100)

// LiquidityResult is the outcome of a deposit or a withdrawal, ordered by
// the pool's mint0/mint1.
type LiquidityResult struct {
	Pool     solana.PublicKey
	LpAmount *big.Int
	Amount0  *big.Int
	Amount1  *big.Int
	// Bound0 and Bound1 are maxima for a deposit and minima for a withdrawal.
	Bound0 *big.Int
	Bound1 *big.Int
}

// AddLiquidityParams deposits Amount of Mint and whatever of the pool's
// other mint keeps the ratio.
type AddLiquidityParams struct {
	Mint   solana.PublicKey
	Amount *big.Int
	// OtherMint defaults to the descriptor's base mint.
	OtherMint   solana.PublicKey
	SlippageBps uint64
	PoolID      solana.PublicKey
	DryRun      bool
}

// PlanAddLiquidity quotes the counterpart and LP share of a deposit, then
// plans and submits it.
func (c *Cpmm) PlanAddLiquidity(ctx context.Context, owner solana.PublicKey, params AddLiquidityParams) *shared.Result[*LiquidityResult] {
	if params.OtherMint.IsZero() {
		params.OtherMint = c.desc.BaseMint
	}
	if params.SlippageBps == 0 {
		params.SlippageBps = DefaultSlippageBps
	}
	var (
		pool    *Pool
		preview *LiquidityResult
		handles [3]*solanago.ResourceHandle
		need0   *big.Int
		need1   *big.Int
	)
	return engine.Run(ctx, c.executor, engine.Operation[*LiquidityResult]{
		Name:   "add_liquidity",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			if owner.IsZero() || params.Mint.IsZero() {
				return shared.Errorf(shared.KindInvalidArgument, "owner and mint are required")
			}
			if params.Amount == nil || params.Amount.Sign() <= 0 || !cpmath.IsUint64(params.Amount) {
				return shared.Errorf(shared.KindInvalidArgument, "amount must be a positive u64")
			}
			if params.SlippageBps >= cpmath.BasisPointMax {
				return shared.Errorf(shared.KindInvalidArgument, "slippage %d bps must be below 10000", params.SlippageBps)
			}
			if pool, err = c.fetchFor(ctx, params.PoolID, params.Mint, params.OtherMint); err != nil {
				return err
			}
			if pool.Disabled(raydiumcp.StatusDepositDisabled) {
				return shared.Errorf(shared.KindInvalidArgument, "deposits are disabled on pool %s", pool.Address)
			}
			_, err = pool.Side(params.Mint)
			return err
		},
		Quote: func(context.Context) error {
			fixed, _ := pool.Side(params.Mint)
			other, _ := pool.Other(params.Mint)
			q, err := cpmath.AddLiquidityQuote(fixed.Reserve, other.Reserve, pool.LpSupply, params.Amount, nil)
			if err != nil {
				return err
			}
			if q.Share.Sign() == 0 {
				return shared.Errorf(shared.KindInsufficientLiquidity, "deposit of %s mints no LP", params.Amount)
			}
			maxFixed := depositMax(params.Amount, fixed.Mint, params.SlippageBps)
			maxOther := depositMax(q.CounterpartB, other.Mint, params.SlippageBps)
			if !cpmath.IsUint64(maxFixed) || !cpmath.IsUint64(maxOther) || !cpmath.IsUint64(q.Share) {
				return shared.Errorf(shared.KindInvalidArgument, "deposit bounds do not fit u64")
			}

			fixedIsOne := fixed.Mint.Address.Equals(pool.Mint1.Address)
			preview = &LiquidityResult{Pool: pool.Address, LpAmount: q.Share}
			preview.Amount0, preview.Amount1 = order(fixedIsOne, params.Amount, q.CounterpartB)
			preview.Bound0, preview.Bound1 = order(fixedIsOne, maxFixed, maxOther)
			// wrapped SOL is funded up to the bound, SPL balances must cover the quote
			need0, need1 = preview.Amount0, preview.Amount1
			if pool.Mint0.Address.Equals(solanago.NativeMint) {
				need0 = preview.Bound0
			}
			if pool.Mint1.Address.Equals(solanago.NativeMint) {
				need1 = preview.Bound1
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			plan := c.newPlan(owner, c.computeUnitPrice)
			var err error
			if handles, err = c.requireLiquidityAccounts(ctx, plan, owner, pool, need0, need1); err != nil {
				return nil, err
			}
			ix, err := raydiumcp.NewDepositInstruction(pool.ProgramID,
				preview.LpAmount.Uint64(), preview.Bound0.Uint64(), preview.Bound1.Uint64(),
				pool.liquidityAccounts(owner, handles[2].Address, handles[0].Address, handles[1].Address))
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *LiquidityResult { return preview },
		Watches: func() []engine.Watch {
			return tradeWatches(owner, handles[:]...)
		},
		FromEvents: func(payloads [][]byte) (*LiquidityResult, bool) {
			ev, ok := raydiumcp.FindLpChangeEvent(payloads, pool.Address)
			if !ok || ev.ChangeType != raydiumcp.LpChangeDeposit {
				return nil, false
			}
			return withAmounts(preview, preview.LpAmount, ev.Token0Amount, ev.Token1Amount), true
		},
		FromBalances: func(d engine.Deltas) (*LiquidityResult, error) {
			lp := d.Gained(handles[2].Address)
			spent0 := new(big.Int).Neg(d.Held(owner, handles[0]))
			spent1 := new(big.Int).Neg(d.Held(owner, handles[1]))
			if lp.Sign() == 0 {
				return nil, fmt.Errorf("no LP minted to %s", handles[2].Address)
			}
			r := *preview
			r.LpAmount, r.Amount0, r.Amount1 = lp, spent0, spent1
			return &r, nil
		},
		Verify: func(r *LiquidityResult) *shared.Error {
			if r.Amount0.Cmp(r.Bound0) > 0 || r.Amount1.Cmp(r.Bound1) > 0 {
				return shared.Errorf(shared.KindSlippageExceeded, "deposited %s/%s, bounds were %s/%s", r.Amount0, r.Amount1, r.Bound0, r.Bound1)
			}
			return nil
		},
	})
}

// depositMax is the slippage bound of a deposit leg, including any transfer fee.
func depositMax(amount *big.Int, mint *solanago.Mint, bps uint64) *big.Int {
	gross := new(big.Int).Add(amount, token2022.MaxFee(mint.TransferFee, amount))
	return cpmath.MaxWithSlippage(gross, bps)
}

// order maps a (fixed, other) pair onto (mint0, mint1).
func order(fixedIsOne bool, fixed, other *big.Int) (*big.Int, *big.Int) {
	if fixedIsOne {
		return other, fixed
	}
	return fixed, other
}

func withAmounts(base *LiquidityResult, lp *big.Int, amount0, amount1 uint64) *LiquidityResult {
	r := *base
	r.LpAmount = lp
	r.Amount0 = new(big.Int).SetUint64(amount0)
	r.Amount1 = new(big.Int).SetUint64(amount1)
	return &r
}

// requireLiquidityAccounts resolves the owner's mint0, mint1 and LP accounts.
func (c *Cpmm) requireLiquidityAccounts(ctx context.Context, plan *solanago.Plan, owner solana.PublicKey, pool *Pool, need0, need1 *big.Int) ([3]*solanago.ResourceHandle, error) {
	var handles [3]*solanago.ResourceHandle
	reqs := []solanago.TokenRequirement{
		{Owner: owner, Mint: pool.Mint0.Address, TokenProgram: pool.Mint0.Program},
		{Owner: owner, Mint: pool.Mint1.Address, TokenProgram: pool.Mint1.Program},
		{Owner: owner, Mint: pool.LpMint, TokenProgram: solana.TokenProgramID},
	}
	if need0 != nil {
		reqs[0].Amount = need0.Uint64()
	}
	if need1 != nil {
		reqs[1].Amount = need1.Uint64()
	}
	for i, req := range reqs {
		h, err := plan.RequireTokenAccount(ctx, c.ledger, req)
		if err != nil {
			return handles, err
		}
		handles[i] = h
	}
	return handles, nil
}

// RemoveLiquidityParams withdraws either LpAmount or Percent of the owner's LP balance.
type RemoveLiquidityParams struct {
	MintA, MintB solana.PublicKey
	PoolID       solana.PublicKey
	LpAmount     *big.Int
	// Percent of the LP balance, in (0, 100]; used when LpAmount is nil.
	Percent decimal.Decimal
	// SlippageBps defaults to DefaultRemoveSlippageBps.
	SlippageBps uint64
	DryRun      bool
}

func (p RemoveLiquidityParams) lpAmount(balance uint64) (*big.Int, error) {
	if p.LpAmount != nil {
		if p.LpAmount.Sign() <= 0 {
			return nil, shared.Errorf(shared.KindInvalidArgument, "lp amount must be positive")
		}
		return new(big.Int).Set(p.LpAmount), nil
	}
	if !p.Percent.IsPositive() || p.Percent.GreaterThan(hundred) {
		return nil, shared.Errorf(shared.KindInvalidArgument, "percent %s must be in (0, 100]", p.Percent)
	}
	lp := decimal.NewFromBigInt(new(big.Int).SetUint64(balance), 0).
		Mul(p.Percent).Div(hundred).Truncate(0).BigInt()
	if lp.Sign() == 0 {
		return nil, shared.Errorf(shared.KindInsufficientBalance, "%s%% of %d LP is nothing", p.Percent, balance)
	}
	return lp, nil
}

// PlanRemoveLiquidity burns LP for both reserves. The unwrap of any wrapped
// SOL account created for it is submitted on its own after the withdrawal.
func (c *Cpmm) PlanRemoveLiquidity(ctx context.Context, owner solana.PublicKey, params RemoveLiquidityParams) *shared.Result[*LiquidityResult] {
	if params.SlippageBps == 0 {
		params.SlippageBps = DefaultRemoveSlippageBps
	}
	var (
		pool    *Pool
		lp      *big.Int
		preview *LiquidityResult
		handles [3]*solanago.ResourceHandle
	)
	return engine.Run(ctx, c.executor, engine.Operation[*LiquidityResult]{
		Name:   "remove_liquidity",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			if owner.IsZero() {
				return shared.Errorf(shared.KindInvalidArgument, "owner is required")
			}
			if params.SlippageBps >= cpmath.BasisPointMax {
				return shared.Errorf(shared.KindInvalidArgument, "slippage %d bps must be below 10000", params.SlippageBps)
			}
			if pool, err = c.fetchFor(ctx, params.PoolID, params.MintA, params.MintB); err != nil {
				return err
			}
			if pool.Disabled(raydiumcp.StatusWithdrawDisabled) {
				return shared.Errorf(shared.KindInvalidArgument, "withdrawals are disabled on pool %s", pool.Address)
			}
			balance, err := c.lpBalance(ctx, owner, pool)
			if err != nil {
				return err
			}
			if lp, err = params.lpAmount(balance); err != nil {
				return err
			}
			if lp.Cmp(new(big.Int).SetUint64(balance)) > 0 {
				return shared.Errorf(shared.KindInsufficientBalance, "%s holds %d LP, need %s", owner, balance, lp)
			}
			return nil
		},
		Quote: func(context.Context) error {
			q, err := cpmath.RemoveLiquidityQuote(pool.Reserve0, pool.Reserve1, pool.LpSupply, lp)
			if err != nil {
				return err
			}
			preview = &LiquidityResult{
				Pool:     pool.Address,
				LpAmount: lp,
				Amount0:  q.AmountA,
				Amount1:  q.AmountB,
				Bound0:   cpmath.MinWithSlippage(q.AmountA, params.SlippageBps),
				Bound1:   cpmath.MinWithSlippage(q.AmountB, params.SlippageBps),
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			plan := c.newPlan(owner, c.computeUnitPrice)
			plan.DetachCleanup = true
			var err error
			if handles, err = c.requireLiquidityAccounts(ctx, plan, owner, pool, nil, nil); err != nil {
				return nil, err
			}
			ix, err := raydiumcp.NewWithdrawInstruction(pool.ProgramID,
				lp.Uint64(), preview.Bound0.Uint64(), preview.Bound1.Uint64(),
				pool.liquidityAccounts(owner, handles[2].Address, handles[0].Address, handles[1].Address))
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *LiquidityResult { return preview },
		Watches: func() []engine.Watch {
			return tradeWatches(owner, handles[:]...)
		},
		FromEvents: func(payloads [][]byte) (*LiquidityResult, bool) {
			ev, ok := raydiumcp.FindLpChangeEvent(payloads, pool.Address)
			if !ok || ev.ChangeType != raydiumcp.LpChangeWithdraw {
				return nil, false
			}
			return withAmounts(preview, lp, ev.Token0Amount, ev.Token1Amount), true
		},
		FromBalances: func(d engine.Deltas) (*LiquidityResult, error) {
			burned := d.Spent(handles[2].Address)
			if burned.Sign() == 0 {
				return nil, fmt.Errorf("no LP burned from %s", handles[2].Address)
			}
			r := *preview
			r.LpAmount = burned
			r.Amount0 = d.Held(owner, handles[0])
			r.Amount1 = d.Held(owner, handles[1])
			return &r, nil
		},
		Verify: func(r *LiquidityResult) *shared.Error {
			if r.Amount0.Cmp(r.Bound0) < 0 || r.Amount1.Cmp(r.Bound1) < 0 {
				return shared.Errorf(shared.KindSlippageExceeded, "withdrew %s/%s, bounds were %s/%s", r.Amount0, r.Amount1, r.Bound0, r.Bound1)
			}
			return nil
		},
	})
}

func (c *Cpmm) lpBalance(ctx context.Context, owner solana.PublicKey, pool *Pool) (uint64, error) {
	ata, err := solanago.FindAssociatedTokenAddress(owner, pool.LpMint, solana.TokenProgramID)
	if err != nil {
		return 0, err
	}
	acc, err := solanago.GetTokenAccount(ctx, c.ledger, ata)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, shared.Errorf(shared.KindAccountNotFound, "%s has no LP account for pool %s", owner, pool.Address)
	}
	return acc.Amount, nil
}

// BurnParams burns either LpAmount or Percent of the owner's LP balance.
type BurnParams struct {
	MintA, MintB solana.PublicKey
	PoolID       solana.PublicKey
	LpAmount     *big.Int
	Percent      decimal.Decimal
	DryRun       bool
}

type BurnResult struct {
	Pool      solana.PublicKey
	LpMint    solana.PublicKey
	LpAccount solana.PublicKey
	Amount    *big.Int
}

// PlanBurnLiquidity destroys LP tokens without withdrawing, permanently
// locking their share of the reserves in the pool.
func (c *Cpmm) PlanBurnLiquidity(ctx context.Context, owner solana.PublicKey, params BurnParams) *shared.Result[*BurnResult] {
	var (
		pool    *Pool
		preview *BurnResult
	)
	return engine.Run(ctx, c.executor, engine.Operation[*BurnResult]{
		Name:   "burn_liquidity",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			if owner.IsZero() {
				return shared.Errorf(shared.KindInvalidArgument, "owner is required")
			}
			if pool, err = c.fetchFor(ctx, params.PoolID, params.MintA, params.MintB); err != nil {
				return err
			}
			balance, err := c.lpBalance(ctx, owner, pool)
			if err != nil {
				return err
			}
			amount, err := RemoveLiquidityParams{LpAmount: params.LpAmount, Percent: params.Percent}.lpAmount(balance)
			if err != nil {
				return err
			}
			if amount.Cmp(new(big.Int).SetUint64(balance)) > 0 {
				return shared.Errorf(shared.KindInsufficientBalance, "%s holds %d LP, need %s", owner, balance, amount)
			}
			ata, err := solanago.FindAssociatedTokenAddress(owner, pool.LpMint, solana.TokenProgramID)
			if err != nil {
				return err
			}
			preview = &BurnResult{Pool: pool.Address, LpMint: pool.LpMint, LpAccount: ata, Amount: amount}
			return nil
		},
		Build: func(context.Context) (*solanago.Plan, error) {
			plan := c.newPlan(owner, c.computeUnitPrice)
			plan.AddCore(solanago.BurnInstruction(preview.LpAccount, preview.LpMint, owner, preview.Amount.Uint64()))
			return plan, nil
		},
		Preview: func() *BurnResult { return preview },
		Watches: func() []engine.Watch {
			return []engine.Watch{engine.TokenWatch(preview.LpAccount)}
		},
		FromBalances: func(d engine.Deltas) (*BurnResult, error) {
			burned := d.Spent(preview.LpAccount)
			if burned.Sign() == 0 {
				return nil, fmt.Errorf("no LP burned from %s", preview.LpAccount)
			}
			r := *preview
			r.Amount = burned
			return &r, nil
		},
	})
}

// LiquidityShare is an owner's stake in a pool and what it would withdraw.
type LiquidityShare struct {
	Pool      solana.PublicKey
	Owner     solana.PublicKey
	LpAccount solana.PublicKey
	Balance   *big.Int
	Supply    *big.Int
	// SharePercent is Balance/Supply in percent, two decimals.
	SharePercent decimal.Decimal
	Claim0       *big.Int
	Claim1       *big.Int
}

// DisplayLP reports owner's LP position in the pool of mintA/mintB. An owner
// without an LP account has a zero share.
func (c *Cpmm) DisplayLP(ctx context.Context, owner, mintA, mintB solana.PublicKey) (*LiquidityShare, error) {
	pool, err := c.FetchPool(ctx, mintA, mintB)
	if err != nil {
		return nil, err
	}
	ata, err := solanago.FindAssociatedTokenAddress(owner, pool.LpMint, solana.TokenProgramID)
	if err != nil {
		return nil, err
	}
	balance, err := solanago.GetTokenBalance(ctx, c.ledger, ata)
	if err != nil {
		return nil, err
	}
	share := &LiquidityShare{
		Pool:      pool.Address,
		Owner:     owner,
		LpAccount: ata,
		Balance:   new(big.Int).SetUint64(balance),
		Supply:    pool.LpSupply,
		Claim0:    new(big.Int),
		Claim1:    new(big.Int),
	}
	if balance == 0 || pool.LpSupply.Sign() == 0 {
		return share, nil
	}
	q, err := cpmath.RemoveLiquidityQuote(pool.Reserve0, pool.Reserve1, pool.LpSupply, share.Balance)
	if err != nil {
		return nil, err
	}
	share.SharePercent = cpmath.SharePercent(share.Balance, pool.LpSupply)
	share.Claim0, share.Claim1 = q.AmountA, q.AmountB
	return share, nil
}
