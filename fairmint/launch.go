package fairmint

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/engine"
	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// launchComputeUnits covers initialize_token with its metadata CPI.
const launchComputeUnits = uint32(500_000)

// TokenType selects one of the emission schedules in TokenParams.
type TokenType string

const (
	TokenStandard TokenType = "standard"
	TokenMeme     TokenType = "meme"
	TokenTest     TokenType = "test"
)

// TokenParams are the launch schedules the program accepts. Sizes are in
// 9-decimal token units and fee rates in base-mint units.
var TokenParams = map[TokenType]fairmintgen.InitializeTokenConfigData{
	TokenStandard: {
		TargetEras:                    1,
		EpochesPerEra:                 200,
		TargetSecondsPerEpoch:         2000,
		ReduceRatio:                   50,
		InitialMintSize:               20_000_000_000_000,
		InitialTargetMintSizePerEpoch: 200_000_000_000_000,
		FeeRate:                       50_000_000,
		LiquidityTokensRatio:          20,
	},
	TokenMeme: {
		TargetEras:                    1,
		EpochesPerEra:                 200,
		TargetSecondsPerEpoch:         2000,
		ReduceRatio:                   75,
		InitialMintSize:               100_000_000_000_000,
		InitialTargetMintSizePerEpoch: 1_000_000_000_000_000,
		FeeRate:                       10_000_000,
		LiquidityTokensRatio:          20,
	},
	TokenTest: {
		TargetEras:                    1,
		EpochesPerEra:                 30,
		TargetSecondsPerEpoch:         60,
		ReduceRatio:                   75,
		InitialMintSize:               1_000_000_000_000,
		InitialTargetMintSizePerEpoch: 10_000_000_000_000,
		FeeRate:                       10_000_000,
		LiquidityTokensRatio:          20,
	},
}

// LaunchParams launches Name/Symbol with the schedule of Type. URI defaults
// to a placeholder derived from the symbol.
type LaunchParams struct {
	Type   TokenType
	Name   string
	Symbol string
	URI    string
	DryRun bool
}

type LaunchResult struct {
	Mint     solana.PublicKey
	Config   solana.PublicKey
	Metadata fairmintgen.TokenMetadata
	Params   fairmintgen.InitializeTokenConfigData
}

// PlanLaunch creates a fair mint token owned by creator. Missing base-mint
// accounts of the creator and of the protocol are created in the same batch.
func (f *FairMint) PlanLaunch(ctx context.Context, creator solana.PublicKey, params LaunchParams) *shared.Result[*LaunchResult] {
	var (
		system  *SystemConfig
		config  fairmintgen.InitializeTokenConfigData
		mint    solana.PublicKey
		preview *LaunchResult
	)
	return engine.Run(ctx, f.executor, engine.Operation[*LaunchResult]{
		Name:   "launch",
		DryRun: params.DryRun,
		Validate: func(ctx context.Context) (err error) {
			var ok bool
			switch {
			case creator.IsZero():
				return shared.Errorf(shared.KindInvalidArgument, "creator is required")
			case params.Name == "" || params.Symbol == "":
				return shared.Errorf(shared.KindInvalidArgument, "name and symbol are required")
			}
			if config, ok = TokenParams[params.Type]; !ok {
				return shared.Errorf(shared.KindInvalidArgument, "unknown token type %q", params.Type)
			}
			if mint, err = DeriveMint(f.desc.ProgramID, params.Name, params.Symbol); err != nil {
				return shared.Wrap(shared.KindInvalidArgument, err, "name or symbol cannot seed a mint address")
			}
			existing, err := f.ledger.GetAccountData(ctx, mint)
			if err != nil {
				return fmt.Errorf("read mint %s: %w", mint, err)
			}
			if existing.Exists {
				return shared.Errorf(shared.KindInvalidArgument, "token already exists: %s", mint)
			}
			lamports, err := f.ledger.GetBalance(ctx, creator)
			if err != nil {
				return fmt.Errorf("read balance of %s: %w", creator, err)
			}
			if lamports == 0 {
				return shared.Errorf(shared.KindInsufficientBalance, "%s has no SOL", creator)
			}
			if system, err = f.GetSystemConfig(ctx); err != nil {
				return err
			}
			if system.IsPause {
				return shared.Errorf(shared.KindInvalidArgument, "fair mint protocol is paused")
			}
			return nil
		},
		Quote: func(context.Context) error {
			address, err := DeriveConfig(f.desc.ProgramID, mint)
			if err != nil {
				return err
			}
			uri := params.URI
			if uri == "" {
				uri = fmt.Sprintf("https://example.com/metadata/%s.json", strings.ToLower(params.Symbol))
			}
			preview = &LaunchResult{
				Mint:     mint,
				Config:   address,
				Metadata: fairmintgen.TokenMetadata{Symbol: params.Symbol, Name: params.Name, URI: uri},
				Params:   config,
			}
			return nil
		},
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			base := f.desc.Cpmm.BaseMint
			plan := solanago.NewPlan(creator, 0)
			plan.AddCore(solanago.ComputeUnitLimitInstruction(launchComputeUnits))
			if f.computeUnitPrice > 0 {
				plan.AddCore(solanago.ComputeUnitPriceInstruction(f.computeUnitPrice))
			}
			baseH, err := plan.RequireTokenAccount(ctx, f.ledger, solanago.TokenRequirement{Owner: creator, Mint: base})
			if err != nil {
				return nil, err
			}
			protocolBaseVault, err := f.ensureProtocolBaseVault(ctx, plan, creator, system)
			if err != nil {
				return nil, err
			}
			ix, err := f.launchInstruction(creator, preview, baseH.Address, protocolBaseVault, system)
			if err != nil {
				return nil, err
			}
			plan.AddCore(ix)
			return plan, nil
		},
		Preview: func() *LaunchResult { return preview },
		Watches: func() []engine.Watch {
			return []engine.Watch{engine.LamportWatch(preview.Config)}
		},
		FromBalances: func(d engine.Deltas) (*LaunchResult, error) {
			if !d.Exists(preview.Config) {
				return nil, fmt.Errorf("config account %s was not created", preview.Config)
			}
			return preview, nil
		},
	})
}

// ensureProtocolBaseVault adds the creation of the protocol fee account's
// base-mint ATA when it is missing, paid by payer.
func (f *FairMint) ensureProtocolBaseVault(ctx context.Context, plan *solanago.Plan, payer solana.PublicKey, system *SystemConfig) (solana.PublicKey, error) {
	vault, err := f.protocolBaseVault(system)
	if err != nil {
		return solana.PublicKey{}, err
	}
	existing, err := f.ledger.GetAccountData(ctx, vault)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("read protocol base vault %s: %w", vault, err)
	}
	if !existing.Exists {
		plan.AddPrerequisite(solanago.CreateAssociatedTokenAccountInstruction(payer, vault, system.ProtocolFeeAccount, f.desc.Cpmm.BaseMint, solana.TokenProgramID))
	}
	return vault, nil
}

func (f *FairMint) launchInstruction(creator solana.PublicKey, r *LaunchResult, payerBaseAta, protocolBaseVault solana.PublicKey, system *SystemConfig) (solana.Instruction, error) {
	program := f.desc.ProgramID
	base := f.desc.Cpmm.BaseMint
	metadata, err := DeriveMetadata(f.desc.MetadataProgram, r.Mint)
	if err != nil {
		return nil, err
	}
	throttle, err := DeriveURCThrottle(program, r.Mint)
	if err != nil {
		return nil, err
	}
	return fairmintgen.NewInitializeTokenInstruction(program, r.Metadata, r.Params, fairmintgen.InitializeTokenAccounts{
		Metadata:               metadata,
		Payer:                  creator,
		Mint:                   r.Mint,
		ConfigAccount:          r.Config,
		ReferrerThrottle:       throttle,
		LaunchRuleAccount:      system.LaunchRule,
		MintTokenVault:         solanago.MustAssociatedTokenAddress(r.Mint, r.Mint, solana.TokenProgramID),
		TokenVault:             solanago.MustAssociatedTokenAddress(r.Config, r.Mint, solana.TokenProgramID),
		BaseMint:               base,
		PayerBaseAta:           payerBaseAta,
		BaseVault:              solanago.MustAssociatedTokenAddress(r.Config, base, solana.TokenProgramID),
		SystemConfigAccount:    system.Address,
		ProtocolFeeAccount:     system.ProtocolFeeAccount,
		ProtocolBaseVault:      protocolBaseVault,
		Rent:                   solana.SysVarRentPubkey,
		SystemProgram:          solana.SystemProgramID,
		TokenProgram:           solana.TokenProgramID,
		TokenMetadataProgram:   f.desc.MetadataProgram,
		AssociatedTokenProgram: solana.SPLAssociatedTokenAccountProgramID,
	})
}
