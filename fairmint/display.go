package fairmint

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// tokenDecimals is the decimals of every fair mint token.
const tokenDecimals = 9

// MintData is a launched token with its configuration and progress. Supply
// figures are whole tokens and FeeRate is in whole base-mint units.
type MintData struct {
	Config        *fairmintgen.TokenConfigData
	Mint          solana.PublicKey
	ConfigAccount solana.PublicKey
	Name          string
	Symbol        string
	URI           string

	TokenVaultBalance uint64
	BaseVaultBalance  uint64

	Supply                 decimal.Decimal
	MaxSupply              decimal.Decimal
	FeeRate                decimal.Decimal
	ReduceRatio            decimal.Decimal
	LiquidityTokensPercent decimal.Decimal
	LiquidityTokensSupply  decimal.Decimal
	MinterTokensSupply     decimal.Decimal
	MintSizeEpoch          decimal.Decimal
	QuantityMintedEpoch    decimal.Decimal
	TargetMintSizeEpoch    decimal.Decimal
	// ProgressPercent is supply over max supply, two decimals.
	ProgressPercent decimal.Decimal
}

func (f *FairMint) GetTokenConfig(ctx context.Context, mint solana.PublicKey) (*fairmintgen.TokenConfigData, solana.PublicKey, error) {
	address, err := DeriveConfig(f.desc.ProgramID, mint)
	if err != nil {
		return nil, address, err
	}
	data, err := account(ctx, f, "config account", address, fairmintgen.DecodeTokenConfigData)
	return data, address, err
}

// GetMintData reads the metadata, configuration and vault balances of mint.
func (f *FairMint) GetMintData(ctx context.Context, mint solana.PublicKey) (*MintData, error) {
	metadata, err := f.GetMetadata(ctx, mint)
	if err != nil {
		return nil, err
	}
	config, address, err := f.GetTokenConfig(ctx, mint)
	if err != nil {
		return nil, err
	}
	tokenVault, err := f.vaultBalance(ctx, config.TokenVault)
	if err != nil {
		return nil, err
	}
	baseVault, err := f.vaultBalance(ctx, config.BaseVault)
	if err != nil {
		return nil, err
	}

	tokens := func(v uint64) decimal.Decimal {
		return decimal.NewFromUint64(v).Shift(-tokenDecimals)
	}
	state := config.MintStateData
	supply := tokens(state.Supply)
	maxSupply := tokens(config.MaxSupply)
	liquidity := decimal.NewFromFloat(config.LiquidityTokensRatio)
	progress := decimal.Zero
	if config.MaxSupply > 0 {
		progress = supply.Div(maxSupply).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return &MintData{
		Config:                 config,
		Mint:                   mint,
		ConfigAccount:          address,
		Name:                   metadata.Name,
		Symbol:                 metadata.Symbol,
		URI:                    metadata.URI,
		TokenVaultBalance:      tokenVault,
		BaseVaultBalance:       baseVault,
		Supply:                 supply,
		MaxSupply:              maxSupply,
		FeeRate:                decimal.NewFromUint64(config.FeeRate).Shift(-int32(config.BaseDecimals)),
		ReduceRatio:            decimal.NewFromInt(1).Sub(decimal.NewFromFloat(config.ReduceRatio)),
		LiquidityTokensPercent: liquidity.Mul(decimal.NewFromInt(100)),
		LiquidityTokensSupply:  supply.Mul(liquidity),
		MinterTokensSupply:     supply.Mul(decimal.NewFromInt(1).Sub(liquidity)),
		MintSizeEpoch:          tokens(state.MintSizeEpoch),
		QuantityMintedEpoch:    tokens(state.QuantityMintedEpoch),
		TargetMintSizeEpoch:    tokens(state.TargetMintSizeEpoch),
		ProgressPercent:        progress,
	}, nil
}

// vaultBalance is zero for a vault that does not exist yet.
func (f *FairMint) vaultBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	acc, err := solanago.GetTokenAccount(ctx, f.ledger, address)
	if err != nil {
		return 0, fmt.Errorf("read vault %s: %w", address, err)
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Amount, nil
}
