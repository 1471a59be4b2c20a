package fairmint

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/cpmm"
	"github.com/krazyTry/flipflop-go/engine"
	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// MintParams mints the next batch of Mint for the user, credited to the
// referrer behind URC.
type MintParams struct {
	Mint   solana.PublicKey
	URC    string
	DryRun bool
}

// MintResult is zero-amount in a preview; the program decides the batch size.
type MintResult struct {
	Mint         solana.PublicKey
	Owner        solana.PublicKey
	TokenAccount solana.PublicKey
	Referrer     solana.PublicKey
	Amount       *big.Int
}

// mintContext is everything PlanMint reads before building.
type mintContext struct {
	referral     *fairmintgen.TokenReferralData
	referralAddr solana.PublicKey
	codeHash     solana.PublicKey
	system       *SystemConfig
	metadata     *fairmintgen.Metadata
	config       solana.PublicKey
	tables       map[solana.PublicKey]solana.PublicKeySlice
}

// PlanMint mints tokens of a fair mint launch. The transaction is built as
// v0 against the descriptor's lookup table.
func (f *FairMint) PlanMint(ctx context.Context, user solana.PublicKey, params MintParams) *shared.Result[*MintResult] {
	var (
		mc          mintContext
		destination solana.PublicKey
		preview     *MintResult
	)
	return engine.Run(ctx, f.executor, engine.Operation[*MintResult]{
		Name:   "mint",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			switch {
			case user.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "user is required")
			case params.Mint.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "mint is required")
			case params.URC == "":
				return shared.Errorf(shared.KindInvalidArgument, "referral code is required")
			}
			mc, err = f.loadMintContext(ctx, user, params)
			return err
		},
		Quote: func(context.Context) (err error) {
			if destination, err = solanago.FindAssociatedTokenAddress(user, params.Mint, solana.TokenProgramID); err != nil {
				return err
			}
			preview = &MintResult{
				Mint:         params.Mint,
				Owner:        user,
				TokenAccount: destination,
				Referrer:     mc.referral.ReferrerMain,
				Amount:       new(big.Int),
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			plan := solanago.NewPlan(user, 0)
			plan.AddressTables = mc.tables
			plan.AddCore(solanago.ComputeUnitLimitInstruction(mintComputeUnits))
			if f.computeUnitPrice > 0 {
				plan.AddCore(solanago.ComputeUnitPriceInstruction(f.computeUnitPrice))
			}
			if _, err := plan.RequireTokenAccount(ctx, f.ledger, solanago.TokenRequirement{
				Owner: user,
				Mint:  params.Mint,
			}); err != nil {
				return nil, err
			}
			ix, err := f.mintInstruction(user, params.Mint, mc)
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *MintResult { return preview },
		Watches: func() []engine.Watch {
			return []engine.Watch{engine.TokenWatch(destination)}
		},
		FromBalances: func(d engine.Deltas) (*MintResult, error) {
			minted := d.Gained(destination)
			if minted.Sign() == 0 {
				return nil, fmt.Errorf("nothing minted to %s", destination)
			}
			r := *preview
			r.Amount = minted
			return &r, nil
		},
	})
}

func (f *FairMint) loadMintContext(ctx context.Context, user solana.PublicKey, params MintParams) (mintContext, error) {
	var mc mintContext
	program := f.desc.ProgramID

	lamports, err := f.ledger.GetBalance(ctx, user)
	if err != nil {
		return mc, fmt.Errorf("read balance of %s: %w", user, err)
	}
	if lamports == 0 {
		return mc, shared.Errorf(shared.KindInsufficientBalance, "%s has no SOL", user)
	}

	byCode, err := f.GetReferralByCode(ctx, params.URC)
	if err != nil {
		return mc, err
	}
	mc.codeHash = byCode.CodeHashKey
	if mc.referralAddr, err = DeriveReferral(program, params.Mint, byCode.ReferrerMain); err != nil {
		return mc, err
	}
	if mc.referral, err = account(ctx, f, "referral account", mc.referralAddr, fairmintgen.DecodeTokenReferralData); err != nil {
		return mc, err
	}
	if !mc.referral.CodeHash.Equals(mc.codeHash) {
		return mc, shared.Errorf(shared.KindInvalidArgument, "referral code %q is not registered for mint %s", params.URC, params.Mint)
	}
	referrerAta, err := solanago.FindAssociatedTokenAddress(mc.referral.ReferrerMain, params.Mint, solana.TokenProgramID)
	if err != nil {
		return mc, err
	}
	if err := f.mustExist(ctx, "referrer token account", referrerAta); err != nil {
		return mc, err
	}

	if mc.system, err = f.GetSystemConfig(ctx); err != nil {
		return mc, err
	}
	if mc.system.IsPause {
		return mc, shared.Errorf(shared.KindInvalidArgument, "fair mint protocol is paused")
	}
	protocolBaseVault, err := f.protocolBaseVault(mc.system)
	if err != nil {
		return mc, err
	}
	if err := f.mustExist(ctx, "protocol base vault", protocolBaseVault); err != nil {
		return mc, err
	}

	if mc.metadata, err = f.GetMetadata(ctx, params.Mint); err != nil {
		return mc, err
	}
	if mc.config, err = DeriveConfig(program, params.Mint); err != nil {
		return mc, err
	}
	if mc.tables, err = solanago.LoadLookupTable(ctx, f.ledger, f.desc.LookupTable); err != nil {
		return mc, err
	}
	return mc, nil
}

func (f *FairMint) mustExist(ctx context.Context, what string, address solana.PublicKey) error {
	data, err := f.ledger.GetAccountData(ctx, address)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", what, address, err)
	}
	if !data.Exists {
		return shared.Errorf(shared.KindAccountNotFound, "%s %s", what, address)
	}
	return nil
}

// protocolBaseVault is the protocol fee account's base-mint ATA.
func (f *FairMint) protocolBaseVault(system *SystemConfig) (solana.PublicKey, error) {
	owner := system.ProtocolFeeAccount
	if !f.desc.AllowOwnerOffCurve && !owner.IsOnCurve() {
		return solana.PublicKey{}, shared.Errorf(shared.KindInvalidArgument, "protocol fee account %s is off curve", owner)
	}
	return solanago.FindAssociatedTokenAddress(owner, f.desc.Cpmm.BaseMint, solana.TokenProgramID)
}

func (f *FairMint) mintInstruction(user, mint solana.PublicKey, mc mintContext) (solana.Instruction, error) {
	program := f.desc.ProgramID
	pool := f.desc.Cpmm
	base := pool.BaseMint
	ata := func(owner, m solana.PublicKey) solana.PublicKey {
		return solanago.MustAssociatedTokenAddress(owner, m, solana.TokenProgramID)
	}

	refund, err := DeriveRefund(program, mint, user)
	if err != nil {
		return nil, err
	}
	solFeePayer, err := DeriveSolFeePayer(program)
	if err != nil {
		return nil, err
	}
	protocolBaseVault, err := f.protocolBaseVault(mc.system)
	if err != nil {
		return nil, err
	}
	addrs, err := cpmm.DerivePoolAddresses(pool.ProgramID, pool.AmmConfig, mint, base)
	if err != nil {
		return nil, err
	}

	return fairmintgen.NewMintTokensInstruction(program, mc.metadata.Name, mc.metadata.Symbol, mc.codeHash,
		fairmintgen.MintTokensAccounts{
			Mint:                   mint,
			Destination:            ata(user, mint),
			DestinationBaseAta:     ata(user, base),
			RefundAccount:          refund,
			User:                   user,
			ConfigAccount:          mc.config,
			SystemConfigAccount:    mc.system.Address,
			MintTokenVault:         ata(mint, mint),
			TokenVault:             ata(mc.config, mint),
			BaseVault:              ata(mc.config, base),
			BaseMint:               base,
			SolFeePayer:            solFeePayer,
			ReferrerAta:            ata(mc.referral.ReferrerMain, mint),
			ReferrerBaseAta:        ata(mc.referral.ReferrerMain, base),
			ReferrerMain:           mc.referral.ReferrerMain,
			ReferralAccount:        mc.referralAddr,
			ProtocolFeeAccount:     mc.system.ProtocolFeeAccount,
			ProtocolBaseVault:      protocolBaseVault,
			PoolState:              addrs.Pool,
			AmmConfig:              pool.AmmConfig,
			CpSwapProgram:          pool.ProgramID,
			Token0Mint:             addrs.Mint0,
			Token1Mint:             addrs.Mint1,
			Rent:                   solana.SysVarRentPubkey,
			TokenProgram:           solana.TokenProgramID,
			SystemProgram:          solana.SystemProgramID,
			AssociatedTokenProgram: solana.SPLAssociatedTokenAccountProgramID,
		},
		fairmintgen.PoolInitAccounts{
			CpSwapProgram:        pool.ProgramID,
			User:                 user,
			AmmConfig:            pool.AmmConfig,
			Authority:            addrs.Authority,
			PoolState:            addrs.Pool,
			Token0Mint:           addrs.Mint0,
			Token1Mint:           addrs.Mint1,
			LpMint:               addrs.LpMint,
			CreatorToken0:        ata(user, addrs.Mint0),
			CreatorToken1:        ata(user, addrs.Mint1),
			CreatorLpToken:       ata(user, addrs.LpMint),
			Token0Vault:          addrs.Vault0,
			Token1Vault:          addrs.Vault1,
			CreatePoolFeeReceive: pool.CreatePoolFeeReceiver,
			Observation:          addrs.Observation,
			TokenProgram:         solana.TokenProgramID,
			Token0Program:        solana.TokenProgramID,
			Token1Program:        solana.TokenProgramID,
			AssociatedProgram:    solana.SPLAssociatedTokenAccountProgramID,
			SystemProgram:        solana.SystemProgramID,
			Rent:                 solana.SysVarRentPubkey,
		})
}
