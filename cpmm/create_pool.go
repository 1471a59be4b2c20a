package cpmm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"

	cpmath "github.com/krazyTry/flipflop-go/cpmm/math"
	"github.com/krazyTry/flipflop-go/engine"
	raydiumcp "github.com/krazyTry/flipflop-go/gen/raydium_cp"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// lockedLiquidity is the LP the program keeps back from the first deposit.
var lockedLiquidity = big.NewInt(100)

// CreatePoolParams seeds a new pool with AmountA of MintA and AmountB of MintB.
type CreatePoolParams struct {
	MintA, MintB     solana.PublicKey
	AmountA, AmountB *big.Int
	// OpenTime is the unix second trading opens; zero opens immediately.
	OpenTime uint64
	DryRun   bool
}

type CreatePoolResult struct {
	Addresses *PoolAddresses
	Amount0   *big.Int
	Amount1   *big.Int
	// LpAmount is what the creator receives; the program locks a little more.
	LpAmount      *big.Int
	OpenTime      uint64
	CreatePoolFee uint64
}

// PlanCreatePool initializes the pool of MintA/MintB under the descriptor's
// amm config. Account setup is confirmed in its own batch before the pool
// is created.
func (c *Cpmm) PlanCreatePool(ctx context.Context, creator solana.PublicKey, params CreatePoolParams) *shared.Result[*CreatePoolResult] {
	var (
		addrs        *PoolAddresses
		ammConfig    *raydiumcp.AmmConfig
		mint0, mint1 *solanago.Mint
		preview      *CreatePoolResult
		lpAccount    solana.PublicKey
		handles      [2]*solanago.ResourceHandle
	)
	return engine.Run(ctx, c.executor, engine.Operation[*CreatePoolResult]{
		Name:   "create_pool",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			switch {
			case creator.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "creator is required")
			case c.desc.CreatePoolFeeReceiver.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "cpmm descriptor has no create-pool fee receiver")
			case params.MintA.IsZero() || params.MintB.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "both mints are required")
			case params.MintA.Equals(params.MintB):
				return shared.Errorf(shared.KindInvalidArgument, "pool mints must differ")
			case params.AmountA == nil || params.AmountA.Sign() <= 0 || !cpmath.IsUint64(params.AmountA):
				return shared.Errorf(shared.KindInvalidArgument, "amount A must be a positive u64")
			case params.AmountB == nil || params.AmountB.Sign() <= 0 || !cpmath.IsUint64(params.AmountB):
				return shared.Errorf(shared.KindInvalidArgument, "amount B must be a positive u64")
			}
			if addrs, err = DerivePoolAddresses(c.desc.ProgramID, c.desc.AmmConfig, params.MintA, params.MintB); err != nil {
				return err
			}
			existing, err := c.ledger.GetAccountData(ctx, addrs.Pool)
			if err != nil {
				return fmt.Errorf("read pool %s: %w", addrs.Pool, err)
			}
			if existing.Exists {
				return shared.Errorf(shared.KindPoolExists, "pool %s already exists", addrs.Pool)
			}
			cfg, err := c.ledger.GetAccountData(ctx, c.desc.AmmConfig)
			if err != nil {
				return fmt.Errorf("read amm config %s: %w", c.desc.AmmConfig, err)
			}
			if !cfg.Exists {
				return shared.Errorf(shared.KindAccountNotFound, "amm config %s", c.desc.AmmConfig)
			}
			if ammConfig, err = raydiumcp.DecodeAmmConfig(cfg.Data); err != nil {
				return err
			}
			if ammConfig.DisableCreatePool {
				return shared.Errorf(shared.KindInvalidArgument, "amm config %s does not allow new pools", c.desc.AmmConfig)
			}
			if mint0, err = solanago.GetMint(ctx, c.ledger, addrs.Mint0); err != nil {
				return err
			}
			mint1, err = solanago.GetMint(ctx, c.ledger, addrs.Mint1)
			return err
		},
		Quote: func(context.Context) error {
			amount0, amount1 := params.AmountA, params.AmountB
			if !addrs.Mint0.Equals(params.MintA) {
				amount0, amount1 = amount1, amount0
			}
			liquidity := cpmath.IntSqrt(new(big.Int).Mul(amount0, amount1))
			if liquidity.Cmp(lockedLiquidity) <= 0 {
				return shared.Errorf(shared.KindInsufficientLiquidity, "initial liquidity %s does not exceed the locked %s", liquidity, lockedLiquidity)
			}
			openTime := params.OpenTime
			if openTime == 0 {
				openTime = uint64(time.Now().Unix())
			}
			preview = &CreatePoolResult{
				Addresses:     addrs,
				Amount0:       new(big.Int).Set(amount0),
				Amount1:       new(big.Int).Set(amount1),
				LpAmount:      liquidity.Sub(liquidity, lockedLiquidity),
				OpenTime:      openTime,
				CreatePoolFee: ammConfig.CreatePoolFee,
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			price := c.computeUnitPrice
			if price == 0 {
				price = DefaultComputeUnitPrice
			}
			plan := c.newPlan(creator, price)
			plan.SeparatePrerequisite = true
			plan.DetachCleanup = true
			plan.FeeReserve = createPoolFeeReserve + ammConfig.CreatePoolFee

			for i, m := range []*solanago.Mint{mint0, mint1} {
				amount := preview.Amount0
				if i == 1 {
					amount = preview.Amount1
				}
				h, err := plan.RequireTokenAccount(ctx, c.ledger, solanago.TokenRequirement{
					Owner:        creator,
					Mint:         m.Address,
					TokenProgram: m.Program,
					Amount:       amount.Uint64(),
				})
				if err != nil {
					return nil, err
				}
				handles[i] = h
			}

			var err error
			if lpAccount, err = solanago.FindAssociatedTokenAddress(creator, addrs.LpMint, solana.TokenProgramID); err != nil {
				return nil, err
			}
			ix, err := raydiumcp.NewInitializeInstruction(c.desc.ProgramID,
				preview.Amount0.Uint64(), preview.Amount1.Uint64(), preview.OpenTime,
				raydiumcp.InitializeAccounts{
					Creator:                creator,
					AmmConfig:              c.desc.AmmConfig,
					Authority:              addrs.Authority,
					PoolState:              addrs.Pool,
					Token0Mint:             addrs.Mint0,
					Token1Mint:             addrs.Mint1,
					LpMint:                 addrs.LpMint,
					CreatorToken0:          handles[0].Address,
					CreatorToken1:          handles[1].Address,
					CreatorLpToken:         lpAccount,
					Token0Vault:            addrs.Vault0,
					Token1Vault:            addrs.Vault1,
					CreatePoolFee:          c.desc.CreatePoolFeeReceiver,
					ObservationState:       addrs.Observation,
					TokenProgram:           solana.TokenProgramID,
					Token0Program:          mint0.Program,
					Token1Program:          mint1.Program,
					AssociatedTokenProgram: solana.SPLAssociatedTokenAccountProgramID,
					SystemProgram:          solana.SystemProgramID,
					Rent:                   solana.SysVarRentPubkey,
				})
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *CreatePoolResult { return preview },
		Watches: func() []engine.Watch {
			return []engine.Watch{engine.TokenWatch(lpAccount)}
		},
		FromBalances: func(d engine.Deltas) (*CreatePoolResult, error) {
			lp := d.Gained(lpAccount)
			if lp.Sign() == 0 {
				return nil, fmt.Errorf("no LP minted to %s", lpAccount)
			}
			r := *preview
			r.LpAmount = lp
			return &r, nil
		},
	})
}
