package fairmint

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/engine"
	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

type SetURCParams struct {
	Mint   solana.PublicKey
	URC    string
	DryRun bool
}

// URCResult is the referral the code points at once registered. UsageCount
// is what the referral account held before, zero for a new one.
type URCResult struct {
	URC                  string
	Mint                 solana.PublicKey
	Referrer             solana.PublicKey
	ReferralAccount      solana.PublicKey
	ReferrerTokenAccount solana.PublicKey
	CodeHash             solana.PublicKey
	UsageCount           uint32
}

// PlanSetURC registers referrer as the owner of the referral code URC for
// Mint. A code already bound to another referral account is rejected; the
// referrer's token account of Mint is created when missing.
func (f *FairMint) PlanSetURC(ctx context.Context, referrer solana.PublicKey, params SetURCParams) *shared.Result[*URCResult] {
	var (
		system   *SystemConfig
		metadata *fairmintgen.Metadata
		code     solana.PublicKey
		preview  *URCResult
	)
	return engine.Run(ctx, f.executor, engine.Operation[*URCResult]{
		Name:   "set_urc",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			switch {
			case referrer.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "referrer is required")
			case params.Mint.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "mint is required")
			case params.URC == "":
				return shared.Errorf(shared.KindInvalidArgument, "referral code is required")
			}
			program := f.desc.ProgramID
			preview = &URCResult{URC: params.URC, Mint: params.Mint, Referrer: referrer}
			if preview.CodeHash, err = DeriveCodeHash(program, params.URC); err != nil {
				return shared.Wrap(shared.KindInvalidArgument, err, "referral code cannot seed an address")
			}
			if code, err = DeriveCodeAccount(program, preview.CodeHash); err != nil {
				return err
			}
			if preview.ReferralAccount, err = DeriveReferral(program, params.Mint, referrer); err != nil {
				return err
			}

			bound, err := f.ledger.GetAccountData(ctx, code)
			if err != nil {
				return fmt.Errorf("read code account %s: %w", code, err)
			}
			if bound.Exists {
				owner, err := fairmintgen.DecodeCodeAccountData(bound.Data)
				if err != nil {
					return err
				}
				if !owner.ReferralAccount.Equals(preview.ReferralAccount) {
					return shared.Errorf(shared.KindInvalidArgument, "referral code %q is already assigned to %s", params.URC, owner.ReferralAccount)
				}
			}

			if system, err = f.GetSystemConfig(ctx); err != nil {
				return err
			}
			metadata, err = f.GetMetadata(ctx, params.Mint)
			return err
		},
		Quote: func(ctx context.Context) error {
			existing, err := f.ledger.GetAccountData(ctx, preview.ReferralAccount)
			if err != nil {
				return fmt.Errorf("read referral account %s: %w", preview.ReferralAccount, err)
			}
			if existing.Exists {
				referral, err := fairmintgen.DecodeTokenReferralData(existing.Data)
				if err != nil {
					return err
				}
				preview.UsageCount = referral.UsageCount
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			program := f.desc.ProgramID
			plan := solanago.NewPlan(referrer, 0)
			if f.computeUnitPrice > 0 {
				plan.AddCore(solanago.ComputeUnitPriceInstruction(f.computeUnitPrice))
			}
			ataH, err := plan.RequireTokenAccount(ctx, f.ledger, solanago.TokenRequirement{Owner: referrer, Mint: params.Mint})
			if err != nil {
				return nil, err
			}
			preview.ReferrerTokenAccount = ataH.Address

			config, err := DeriveConfig(program, params.Mint)
			if err != nil {
				return nil, err
			}
			throttle, err := DeriveURCThrottle(program, params.Mint)
			if err != nil {
				return nil, err
			}
			ix, err := fairmintgen.NewSetReferrerCodeInstruction(program, metadata.Name, metadata.Symbol, preview.CodeHash, fairmintgen.SetReferrerCodeAccounts{
				Payer:                  referrer,
				Mint:                   params.Mint,
				ReferrerAta:            ataH.Address,
				ReferralAccount:        preview.ReferralAccount,
				ConfigAccount:          config,
				SystemConfigAccount:    system.Address,
				CodeAccount:            code,
				ReferrerThrottle:       throttle,
				SystemProgram:          solana.SystemProgramID,
				TokenProgram:           solana.TokenProgramID,
				AssociatedTokenProgram: solana.SPLAssociatedTokenAccountProgramID,
			})
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *URCResult { return preview },
		Watches: func() []engine.Watch {
			return []engine.Watch{engine.LamportWatch(code)}
		},
		FromBalances: func(d engine.Deltas) (*URCResult, error) {
			if !d.Exists(code) {
				return nil, fmt.Errorf("code account %s was not created", code)
			}
			return preview, nil
		},
	})
}
