package fairmint

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/engine"
	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

type RefundParams struct {
	Mint   solana.PublicKey
	DryRun bool
}

// RefundResult reports the tokens handed back and the base received.
// In a preview BaseReceived is the gross mint fee, before the refund fee.
type RefundResult struct {
	Mint           solana.PublicKey
	RefundAccount  solana.PublicKey
	TokensReturned *big.Int
	BaseReceived   *big.Int
	RefundFeeRate  float64
}

// PlanRefund returns owner's minted tokens of params.Mint for their base
// tokens. Missing base-mint accounts of the owner and of the protocol are
// created in the same batch.
func (f *FairMint) PlanRefund(ctx context.Context, owner solana.PublicKey, params RefundParams) *shared.Result[*RefundResult] {
	var (
		system   *SystemConfig
		refund   *Refund
		metadata *fairmintgen.Metadata
		tokenAta solana.PublicKey
		baseH    *solanago.ResourceHandle
		preview  *RefundResult
	)
	return engine.Run(ctx, f.executor, engine.Operation[*RefundResult]{
		Name:   "refund",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			if owner.IsZero() || params.Mint.IsZero() {
				return shared.Errorf(shared.KindInvalidArgument, "owner and mint are required")
			}
			if system, err = f.GetSystemConfig(ctx); err != nil {
				return err
			}
			if refund, err = f.GetRefundData(ctx, params.Mint, owner); err != nil {
				return err
			}
			if !refund.Owner.Equals(owner) {
				return shared.Errorf(shared.KindInvalidArgument, "refund account %s belongs to %s", refund.Address, refund.Owner)
			}
			metadata, err = f.GetMetadata(ctx, params.Mint)
			return err
		},
		Quote: func(context.Context) (err error) {
			if tokenAta, err = solanago.FindAssociatedTokenAddress(owner, params.Mint, solana.TokenProgramID); err != nil {
				return err
			}
			preview = &RefundResult{
				Mint:           params.Mint,
				RefundAccount:  refund.Address,
				TokensReturned: new(big.Int).SetUint64(refund.TotalTokens),
				BaseReceived:   new(big.Int).SetUint64(refund.TotalMintFee),
				RefundFeeRate:  system.RefundFeeRate,
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			base := f.desc.Cpmm.BaseMint
			plan := solanago.NewPlan(owner, 0)
			if f.computeUnitPrice > 0 {
				plan.AddCore(solanago.ComputeUnitPriceInstruction(f.computeUnitPrice))
			}

			var err error
			if baseH, err = plan.RequireTokenAccount(ctx, f.ledger, solanago.TokenRequirement{Owner: owner, Mint: base}); err != nil {
				return nil, err
			}
			protocolBaseVault, err := f.ensureProtocolBaseVault(ctx, plan, owner, system)
			if err != nil {
				return nil, err
			}

			config, err := DeriveConfig(f.desc.ProgramID, params.Mint)
			if err != nil {
				return nil, err
			}
			ix, err := fairmintgen.NewRefundInstruction(f.desc.ProgramID, metadata.Name, metadata.Symbol, fairmintgen.RefundAccounts{
				Mint:                params.Mint,
				RefundAccount:       refund.Address,
				ConfigAccount:       config,
				TokenAta:            tokenAta,
				TokenVault:          solanago.MustAssociatedTokenAddress(config, params.Mint, solana.TokenProgramID),
				ProtocolFeeAccount:  system.ProtocolFeeAccount,
				SystemConfigAccount: system.Address,
				Payer:               owner,
				BaseVault:           solanago.MustAssociatedTokenAddress(config, base, solana.TokenProgramID),
				PayerBaseVault:      baseH.Address,
				ProtocolBaseVault:   protocolBaseVault,
				TokenProgram:        solana.TokenProgramID,
				SystemProgram:       solana.SystemProgramID,
			})
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *RefundResult { return preview },
		Watches: func() []engine.Watch {
			watches := []engine.Watch{engine.TokenWatch(tokenAta)}
			if baseH != nil {
				watches = append(watches, engine.TokenWatch(baseH.Address))
				if baseH.Native {
					watches = append(watches, engine.LamportWatch(owner))
				}
			}
			return watches
		},
		FromBalances: func(d engine.Deltas) (*RefundResult, error) {
			returned := d.Spent(tokenAta)
			if returned.Sign() == 0 {
				return nil, fmt.Errorf("no tokens left %s", tokenAta)
			}
			received := d.Held(owner, baseH)
			r := *preview
			r.TokensReturned, r.BaseReceived = returned, received
			return &r, nil
		},
	})
}
