package cpmm_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/flipflop-go/cpmm"
	raydiumcp "github.com/krazyTry/flipflop-go/gen/raydium_cp"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
	"github.com/krazyTry/flipflop-go/solana/ledgertest"
)

// byMint orders a (base, token) pair the way the pool orders its mints.
func (f *fixture) byMint(base, token int64) (int64, int64) {
	if f.addrs.Mint0.Equals(solanago.NativeMint) {
		return base, token
	}
	return token, base
}

func (f *fixture) setLP(t *testing.T, amount uint64) solana.PublicKey {
	t.Helper()
	ata := f.ata(f.addrs.LpMint)
	f.ledger.SetTokenAccount(ata, f.addrs.LpMint, f.owner, amount)
	return ata
}

var standardPool = poolSetup{baseReserve: 1_000_000, tokenReserve: 500_000, lpSupply: 700_000}

func TestAddLiquidityQuotesCounterpart(t *testing.T) {
	f := newFixture(t, standardPool)
	f.ledger.SetTokenAccount(f.ata(f.token), f.token, f.owner, 6_000)

	res := f.cpmm.PlanAddLiquidity(context.Background(), f.owner, cpmm.AddLiquidityParams{
		Mint:   f.token,
		Amount: big.NewInt(5_000),
		DryRun: true,
	})
	require.True(t, res.OK(), "%v", res.Err)

	a0, a1 := f.byMint(10_000, 5_000)
	b0, b1 := f.byMint(10_500, 5_250)
	assert.Equal(t, int64(7_000), res.Value.LpAmount.Int64())
	assert.Equal(t, a0, res.Value.Amount0.Int64())
	assert.Equal(t, a1, res.Value.Amount1.Int64())
	assert.Equal(t, b0, res.Value.Bound0.Int64())
	assert.Equal(t, b1, res.Value.Bound1.Int64())
	assert.Empty(t, f.ledger.Batches())
}

func TestAddLiquiditySubmitsDeposit(t *testing.T) {
	f := newFixture(t, standardPool)
	f.ledger.SetTokenAccount(f.ata(f.token), f.token, f.owner, 6_000)
	t0, t1 := f.byMint(10_000, 5_000)
	f.ledger.SetEvents(ledgertest.Signature(0), event(t, &raydiumcp.LpChangeEvent{
		PoolID:       f.addrs.Pool,
		Token0Amount: uint64(t0),
		Token1Amount: uint64(t1),
		ChangeType:   raydiumcp.LpChangeDeposit,
	}))

	res := f.cpmm.PlanAddLiquidity(context.Background(), f.owner, cpmm.AddLiquidityParams{
		Mint:   f.token,
		Amount: big.NewInt(5_000),
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, shared.StrategyEvent, res.Strategy)
	assert.Empty(t, res.Warnings)

	batches := f.ledger.Batches()
	require.Len(t, batches, 1)
	deposit := findProgram(batches[0].Instructions, programID)
	require.NotNil(t, deposit)
	assert.Equal(t, raydiumcp.DepositDiscriminator[:], discriminatorOf(t, deposit))
	assert.Len(t, deposit.Accounts(), 13)
	assert.Equal(t, f.ata(f.addrs.LpMint), deposit.Accounts()[3].PublicKey)
}

func TestAddLiquidityNeedsTokens(t *testing.T) {
	f := newFixture(t, standardPool)
	f.ledger.SetTokenAccount(f.ata(f.token), f.token, f.owner, 1_000)

	res := f.cpmm.PlanAddLiquidity(context.Background(), f.owner, cpmm.AddLiquidityParams{
		Mint:   f.token,
		Amount: big.NewInt(5_000),
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindInsufficientBalance, res.Err.Kind)
	assert.Empty(t, f.ledger.Batches())
}

func TestAddLiquidityDepositDisabled(t *testing.T) {
	setup := standardPool
	setup.status = raydiumcp.StatusDepositDisabled
	f := newFixture(t, setup)

	res := f.cpmm.PlanAddLiquidity(context.Background(), f.owner, cpmm.AddLiquidityParams{Mint: f.token, Amount: big.NewInt(5_000)})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindInvalidArgument, res.Err.Kind)
}

func TestRemoveLiquidityDetachesUnwrap(t *testing.T) {
	f := newFixture(t, standardPool)
	f.setLP(t, 70_000)

	res := f.cpmm.PlanRemoveLiquidity(context.Background(), f.owner, cpmm.RemoveLiquidityParams{
		MintA:   solanago.NativeMint,
		MintB:   f.token,
		Percent: decimal.NewFromInt(50),
	})
	require.True(t, res.OK(), "%v", res.Err)

	a0, a1 := f.byMint(50_000, 25_000)
	m0, m1 := f.byMint(49_500, 24_750)
	assert.Equal(t, int64(35_000), res.Value.LpAmount.Int64())
	assert.Equal(t, a0, res.Value.Amount0.Int64())
	assert.Equal(t, a1, res.Value.Amount1.Int64())
	assert.Equal(t, m0, res.Value.Bound0.Int64())
	assert.Equal(t, m1, res.Value.Bound1.Int64())
	// nothing to reconcile from in memory
	assert.True(t, res.HasWarning(shared.KindUnreconciled))

	batches := f.ledger.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, solanago.BatchCore, batches[0].Kind)
	assert.Equal(t, solanago.BatchCleanup, batches[1].Kind)
	withdraw := findProgram(batches[0].Instructions, programID)
	require.NotNil(t, withdraw)
	assert.Equal(t, raydiumcp.WithdrawDiscriminator[:], discriminatorOf(t, withdraw))
	assert.Len(t, withdraw.Accounts(), 14)
	assert.Equal(t, []solana.PublicKey{solana.TokenProgramID}, programsOf(batches[1].Instructions))
	assert.Len(t, res.Signatures, 2)
}

func TestRemoveLiquidityCleanupFailureIsWarning(t *testing.T) {
	f := newFixture(t, standardPool, cpmm.WithCleanupRetries(2, 0))
	f.setLP(t, 70_000)
	f.ledger.OnSubmit = func(n int, batch solanago.Batch) (solanago.Confirmation, error) {
		if batch.Kind == solanago.BatchCleanup {
			return solanago.Confirmation{}, errors.New("blockhash not found")
		}
		return solanago.Confirmation{Signature: ledgertest.Signature(n), Slot: 1}, nil
	}

	res := f.cpmm.PlanRemoveLiquidity(context.Background(), f.owner, cpmm.RemoveLiquidityParams{
		MintA:    f.token,
		MintB:    solanago.NativeMint,
		LpAmount: big.NewInt(7_000),
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.True(t, res.HasWarning(shared.KindCleanupWarning))
	// core once, cleanup twice
	assert.Len(t, f.ledger.Batches(), 3)
}

func TestRemoveLiquidityStrandedUnwrapReconciles(t *testing.T) {
	f := newFixture(t, standardPool, cpmm.WithCleanupRetries(2, 0))
	lpATA := f.setLP(t, 70_000)
	wsolATA, tokenATA := f.ata(solanago.NativeMint), f.ata(f.token)
	start := f.lamports(t)
	f.ledger.OnSubmit = func(n int, batch solanago.Batch) (solanago.Confirmation, error) {
		if batch.Kind == solanago.BatchCleanup {
			return solanago.Confirmation{}, errors.New("blockhash not found")
		}
		return solanago.Confirmation{Signature: ledgertest.Signature(n), Slot: 1}, nil
	}
	f.ledger.AfterSubmit = func(l *ledgertest.Ledger, batch solanago.Batch) {
		if batch.Kind != solanago.BatchCore {
			return
		}
		// both payout accounts were opened by the owner and the unwrap never landed
		l.AddTokenAmount(lpATA, f.addrs.LpMint, f.owner, -35_000)
		l.SetTokenAccount(wsolATA, solanago.NativeMint, f.owner, 50_000)
		l.SetTokenAccount(tokenATA, f.token, f.owner, 25_000)
		l.SetBalance(f.owner, start-2*solanago.TokenAccountRentExempt)
	}

	res := f.cpmm.PlanRemoveLiquidity(context.Background(), f.owner, cpmm.RemoveLiquidityParams{
		MintA:   solanago.NativeMint,
		MintB:   f.token,
		Percent: decimal.NewFromInt(50),
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, shared.StrategyBalance, res.Strategy)
	assert.True(t, res.HasWarning(shared.KindCleanupWarning))
	assert.False(t, res.HasWarning(shared.KindSlippageExceeded))

	a0, a1 := f.byMint(50_000, 25_000)
	assert.Equal(t, int64(35_000), res.Value.LpAmount.Int64())
	assert.Equal(t, a0, res.Value.Amount0.Int64())
	assert.Equal(t, a1, res.Value.Amount1.Int64())
	assert.Less(t, f.lamports(t), start-2*solanago.TokenAccountRentExempt)
}

func TestRemoveLiquidityWithoutLPAccount(t *testing.T) {
	f := newFixture(t, standardPool)

	res := f.cpmm.PlanRemoveLiquidity(context.Background(), f.owner, cpmm.RemoveLiquidityParams{
		MintA:   solanago.NativeMint,
		MintB:   f.token,
		Percent: decimal.NewFromInt(100),
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindAccountNotFound, res.Err.Kind)
}

func TestRemoveLiquidityRejectsOverdraw(t *testing.T) {
	f := newFixture(t, standardPool)
	f.setLP(t, 1_000)

	res := f.cpmm.PlanRemoveLiquidity(context.Background(), f.owner, cpmm.RemoveLiquidityParams{
		MintA:    solanago.NativeMint,
		MintB:    f.token,
		LpAmount: big.NewInt(1_001),
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindInsufficientBalance, res.Err.Kind)

	res = f.cpmm.PlanRemoveLiquidity(context.Background(), f.owner, cpmm.RemoveLiquidityParams{
		MintA:   solanago.NativeMint,
		MintB:   f.token,
		Percent: decimal.NewFromInt(101),
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindInvalidArgument, res.Err.Kind)
}

func TestBurnLiquidityReconcilesFromBalance(t *testing.T) {
	f := newFixture(t, standardPool)
	lpATA := f.setLP(t, 70_000)
	f.ledger.AfterSubmit = func(l *ledgertest.Ledger, _ solanago.Batch) {
		l.AddTokenAmount(lpATA, f.addrs.LpMint, f.owner, -7_000)
	}

	res := f.cpmm.PlanBurnLiquidity(context.Background(), f.owner, cpmm.BurnParams{
		MintA:   solanago.NativeMint,
		MintB:   f.token,
		Percent: decimal.NewFromInt(10),
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, shared.StrategyBalance, res.Strategy)
	assert.Equal(t, int64(7_000), res.Value.Amount.Int64())
	assert.Equal(t, uint64(63_000), f.ledger.TokenAmount(lpATA))
}

func TestDisplayLP(t *testing.T) {
	f := newFixture(t, standardPool)
	f.setLP(t, 70_000)

	share, err := f.cpmm.DisplayLP(context.Background(), f.owner, f.token, solanago.NativeMint)
	require.NoError(t, err)
	c0, c1 := f.byMint(100_000, 50_000)
	assert.Equal(t, c0, share.Claim0.Int64())
	assert.Equal(t, c1, share.Claim1.Int64())
	assert.True(t, share.SharePercent.Equal(decimal.NewFromInt(10)))

	stranger, err := f.cpmm.DisplayLP(context.Background(), solana.NewWallet().PublicKey(), f.token, solanago.NativeMint)
	require.NoError(t, err)
	assert.Zero(t, stranger.Claim0.Sign())
	assert.True(t, stranger.SharePercent.IsZero())
}

func TestCreatePoolSeparatesSetup(t *testing.T) {
	f := newFixture(t, poolSetup{})
	f.ledger.SetTokenAccount(f.ata(f.token), f.token, f.owner, 1_000_000)
	lpATA := f.ata(f.addrs.LpMint)
	f.ledger.AfterSubmit = func(l *ledgertest.Ledger, batch solanago.Batch) {
		if batch.Kind == solanago.BatchCore {
			l.SetTokenAccount(lpATA, f.addrs.LpMint, f.owner, 44_721_259)
		}
	}

	res := f.cpmm.PlanCreatePool(context.Background(), f.owner, cpmm.CreatePoolParams{
		MintA:    solanago.NativeMint,
		MintB:    f.token,
		AmountA:  big.NewInt(2 * lamportsPerSOL),
		AmountB:  big.NewInt(1_000_000),
		OpenTime: 1_700_000_000,
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, shared.StrategyBalance, res.Strategy)
	// isqrt(2e9 * 1e6) minus the locked 100
	assert.Equal(t, int64(44_721_259), res.Value.LpAmount.Int64())
	assert.Equal(t, f.addrs.Pool, res.Value.Addresses.Pool)
	assert.Equal(t, uint64(150_000_000), res.Value.CreatePoolFee)

	batches := f.ledger.Batches()
	require.Len(t, batches, 3)
	assert.Equal(t, solanago.BatchPrerequisite, batches[0].Kind)
	assert.Equal(t, solanago.BatchCore, batches[1].Kind)
	assert.Equal(t, solanago.BatchCleanup, batches[2].Kind)

	core := batches[1].Instructions
	require.Len(t, core, 3)
	assert.Equal(t, solana.ComputeBudget, core[0].ProgramID())
	assert.Equal(t, solana.ComputeBudget, core[1].ProgramID())
	assert.Equal(t, raydiumcp.InitializeDiscriminator[:], discriminatorOf(t, core[2]))
	assert.Len(t, core[2].Accounts(), 20)
}

func TestCreatePoolChecks(t *testing.T) {
	params := func(f *fixture) cpmm.CreatePoolParams {
		return cpmm.CreatePoolParams{
			MintA:   solanago.NativeMint,
			MintB:   f.token,
			AmountA: big.NewInt(2 * lamportsPerSOL),
			AmountB: big.NewInt(1_000_000),
		}
	}

	t.Run("existing pool", func(t *testing.T) {
		f := newFixture(t, standardPool)
		res := f.cpmm.PlanCreatePool(context.Background(), f.owner, params(f))
		require.False(t, res.OK())
		assert.Equal(t, shared.KindPoolExists, res.Err.Kind)
	})

	t.Run("not enough SOL", func(t *testing.T) {
		f := newFixture(t, poolSetup{})
		f.ledger.SetTokenAccount(f.ata(f.token), f.token, f.owner, 1_000_000)
		f.ledger.SetBalance(f.owner, 2*lamportsPerSOL)
		res := f.cpmm.PlanCreatePool(context.Background(), f.owner, params(f))
		require.False(t, res.OK())
		assert.Equal(t, shared.KindInsufficientBalance, res.Err.Kind)
		assert.Empty(t, f.ledger.Batches())
	})

	t.Run("dust liquidity", func(t *testing.T) {
		f := newFixture(t, poolSetup{})
		p := params(f)
		p.AmountA, p.AmountB = big.NewInt(10), big.NewInt(10)
		res := f.cpmm.PlanCreatePool(context.Background(), f.owner, p)
		require.False(t, res.OK())
		assert.Equal(t, shared.KindInsufficientLiquidity, res.Err.Kind)
	})
}
