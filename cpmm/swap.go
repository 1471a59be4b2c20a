package cpmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/engine"
	raydiumcp "github.com/krazyTry/flipflop-go/gen/raydium_cp"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// SwapResult carries the quote and the executed amounts. When the amounts
// could not be reconciled they equal the quoted ones and the result holds
// an Indeterminate warning.
type SwapResult struct {
	Quote     *SwapQuote
	AmountIn  *big.Int
	AmountOut *big.Int
	// InputAccount and OutputAccount are the owner's token accounts the swap used.
	InputAccount  solana.PublicKey
	OutputAccount solana.PublicKey
}

// TradeParams is a buy or sell of Mint against the descriptor's base mint.
type TradeParams struct {
	Mint solana.PublicKey
	// Amount is the tokens to receive on Buy and the tokens to spend on Sell.
	Amount *big.Int
	// SlippageBps defaults to DefaultSlippageBps.
	SlippageBps uint64
	PoolID      solana.PublicKey
	DryRun      bool
}

// Buy receives exactly params.Amount of the token, paying at most the
// quoted base amount plus slippage.
func (c *Cpmm) Buy(ctx context.Context, owner solana.PublicKey, params TradeParams) *shared.Result[*SwapResult] {
	return c.planSwap(ctx, "buy", owner, c.tradeParams(params, c.desc.BaseMint, params.Mint, shared.SwapExactOut), 0)
}

// Sell spends exactly params.Amount of the token for at least the quoted
// base amount minus slippage.
func (c *Cpmm) Sell(ctx context.Context, owner solana.PublicKey, params TradeParams) *shared.Result[*SwapResult] {
	return c.planSwap(ctx, "sell", owner, c.tradeParams(params, params.Mint, c.desc.BaseMint, shared.SwapExactIn), minSellLamports)
}

func (c *Cpmm) tradeParams(p TradeParams, input, output solana.PublicKey, kind shared.SwapKind) SwapParams {
	bps := p.SlippageBps
	if bps == 0 {
		bps = DefaultSlippageBps
	}
	return SwapParams{
		InputMint:   input,
		OutputMint:  output,
		Kind:        kind,
		Amount:      p.Amount,
		SlippageBps: bps,
		PoolID:      p.PoolID,
		DryRun:      p.DryRun,
	}
}

// PlanSwap quotes, plans and, unless params.DryRun, submits a swap for owner.
func (c *Cpmm) PlanSwap(ctx context.Context, owner solana.PublicKey, params SwapParams) *shared.Result[*SwapResult] {
	return c.planSwap(ctx, "swap", owner, params, 0)
}

func (c *Cpmm) planSwap(ctx context.Context, name string, owner solana.PublicKey, params SwapParams, minLamports uint64) *shared.Result[*SwapResult] {
	var (
		pool    *Pool
		quote   *SwapQuote
		in, out Side
		inH     *solanago.ResourceHandle
		outH    *solanago.ResourceHandle
	)

	result := func(amountIn, amountOut *big.Int) *SwapResult {
		r := &SwapResult{Quote: quote, AmountIn: amountIn, AmountOut: amountOut}
		if inH != nil {
			r.InputAccount = inH.Address
		}
		if outH != nil {
			r.OutputAccount = outH.Address
		}
		return r
	}

	return engine.Run(ctx, c.executor, engine.Operation[*SwapResult]{
		Name:   name,
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			if owner.IsZero() {
				return shared.Errorf(shared.KindInvalidArgument, "owner is required")
			}
			if err = params.validate(); err != nil {
				return err
			}
			if pool, err = c.fetchFor(ctx, params.PoolID, params.InputMint, params.OutputMint); err != nil {
				return err
			}
			if pool.Disabled(raydiumcp.StatusSwapDisabled) {
				return shared.Errorf(shared.KindInvalidArgument, "swaps are disabled on pool %s", pool.Address)
			}
			if in, out, err = pool.Sides(params.InputMint, params.OutputMint); err != nil {
				return err
			}
			if minLamports > 0 {
				lamports, err := c.ledger.GetBalance(ctx, owner)
				if err != nil {
					return fmt.Errorf("read balance of %s: %w", owner, err)
				}
				if lamports < minLamports {
					return shared.Errorf(shared.KindInsufficientBalance, "%s has %d lamports, need %d for fees", owner, lamports, minLamports)
				}
			}
			return nil
		},
		Quote: func(context.Context) (err error) {
			quote, err = quoteSwap(pool, params)
			return err
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			plan := c.newPlan(owner, c.computeUnitPrice)

			// the input account must cover the worst case the program may take
			spend := quote.AmountIn
			if quote.Kind == shared.SwapExactOut {
				spend = quote.Bound
			}
			var err error
			inH, err = plan.RequireTokenAccount(ctx, c.ledger, solanago.TokenRequirement{
				Owner:        owner,
				Mint:         in.Mint.Address,
				TokenProgram: in.Mint.Program,
				Amount:       spend.Uint64(),
			})
			if err != nil {
				return nil, err
			}
			outH, err = plan.RequireTokenAccount(ctx, c.ledger, solanago.TokenRequirement{
				Owner:        owner,
				Mint:         out.Mint.Address,
				TokenProgram: out.Mint.Program,
			})
			if err != nil {
				return nil, err
			}

			accounts := raydiumcp.SwapAccounts{
				Payer:              owner,
				Authority:          pool.Authority,
				AmmConfig:          pool.AmmConfig,
				PoolState:          pool.Address,
				InputTokenAccount:  inH.Address,
				OutputTokenAccount: outH.Address,
				InputVault:         in.Vault,
				OutputVault:        out.Vault,
				InputTokenProgram:  in.Mint.Program,
				OutputTokenProgram: out.Mint.Program,
				InputMint:          in.Mint.Address,
				OutputMint:         out.Mint.Address,
				ObservationState:   pool.Observation,
			}
			var ix solana.Instruction
			if quote.Kind == shared.SwapExactIn {
				ix, err = raydiumcp.NewSwapBaseInputInstruction(pool.ProgramID, quote.AmountIn.Uint64(), quote.Bound.Uint64(), accounts)
			} else {
				ix, err = raydiumcp.NewSwapBaseOutputInstruction(pool.ProgramID, quote.Bound.Uint64(), quote.AmountOut.Uint64(), accounts)
			}
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *SwapResult {
			return result(quote.AmountIn, quote.AmountOut)
		},
		Watches: func() []engine.Watch {
			return tradeWatches(owner, inH, outH)
		},
		FromEvents: func(payloads [][]byte) (*SwapResult, bool) {
			ev, ok := raydiumcp.FindSwapEvent(payloads, pool.Address)
			if !ok {
				return nil, false
			}
			return result(new(big.Int).SetUint64(ev.InputAmount), new(big.Int).SetUint64(ev.OutputAmount)), true
		},
		FromBalances: func(d engine.Deltas) (*SwapResult, error) {
			spent := new(big.Int).Neg(d.Held(owner, inH))
			received := d.Held(owner, outH)
			if spent.Sign() <= 0 || received.Sign() <= 0 {
				return nil, fmt.Errorf("no swap visible in balances: spent %s, received %s", spent, received)
			}
			return result(spent, received), nil
		},
		Verify: func(r *SwapResult) *shared.Error {
			switch {
			case quote.Kind == shared.SwapExactIn && r.AmountOut.Cmp(quote.Bound) < 0:
				return shared.Errorf(shared.KindSlippageExceeded, "received %s, bound was %s", r.AmountOut, quote.Bound)
			case quote.Kind == shared.SwapExactOut && r.AmountIn.Cmp(quote.Bound) > 0:
				return shared.Errorf(shared.KindSlippageExceeded, "spent %s, bound was %s", r.AmountIn, quote.Bound)
			}
			return nil
		},
	})
}

// tradeWatches watches each handle's token amount, plus the owner's lamports
// when a native handle may be unwrapped.
func tradeWatches(owner solana.PublicKey, handles ...*solanago.ResourceHandle) []engine.Watch {
	var (
		watches []engine.Watch
		native  bool
	)
	for _, h := range handles {
		if h == nil {
			continue
		}
		watches = append(watches, engine.TokenWatch(h.Address))
		native = native || h.Native
	}
	if native {
		watches = append(watches, engine.LamportWatch(owner))
	}
	return watches
}
