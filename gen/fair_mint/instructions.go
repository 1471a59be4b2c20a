package fairmint

import (
	"bytes"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

// ProgramID is the fair mint program on every network.
var ProgramID = solana.MustPublicKeyFromBase58("FLiPUFYBgPW5q73tiFX92GkmdX5kiQcAQB8dYQurPHR")

// MetadataProgramID is the Metaplex token metadata program.
var MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

var (
	MintTokensDiscriminator      = solanago.InstructionDiscriminator("mint_tokens")
	RefundDiscriminator          = solanago.InstructionDiscriminator("refund")
	InitializeTokenDiscriminator = solanago.InstructionDiscriminator("initialize_token")
	SetReferrerCodeDiscriminator = solanago.InstructionDiscriminator("set_referrer_code")
)

func encodeArgs(disc [8]byte, args any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := binary.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MintTokensAccounts is the named account list of mint_tokens.
type MintTokensAccounts struct {
	Mint                   solana.PublicKey
	Destination            solana.PublicKey
	DestinationBaseAta     solana.PublicKey
	RefundAccount          solana.PublicKey
	User                   solana.PublicKey
	ConfigAccount          solana.PublicKey
	SystemConfigAccount    solana.PublicKey
	MintTokenVault         solana.PublicKey
	TokenVault             solana.PublicKey
	BaseVault              solana.PublicKey
	BaseMint               solana.PublicKey
	SolFeePayer            solana.PublicKey
	ReferrerAta            solana.PublicKey
	ReferrerBaseAta        solana.PublicKey
	ReferrerMain           solana.PublicKey
	ReferralAccount        solana.PublicKey
	ProtocolFeeAccount     solana.PublicKey
	ProtocolBaseVault      solana.PublicKey
	PoolState              solana.PublicKey
	AmmConfig              solana.PublicKey
	CpSwapProgram          solana.PublicKey
	Token0Mint             solana.PublicKey
	Token1Mint             solana.PublicKey
	Rent                   solana.PublicKey
	TokenProgram           solana.PublicKey
	SystemProgram          solana.PublicKey
	AssociatedTokenProgram solana.PublicKey
}

func (a MintTokensAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Mint, true, false),
		solana.NewAccountMeta(a.Destination, true, false),
		solana.NewAccountMeta(a.DestinationBaseAta, true, false),
		solana.NewAccountMeta(a.RefundAccount, true, false),
		solana.NewAccountMeta(a.User, true, true),
		solana.NewAccountMeta(a.ConfigAccount, true, false),
		solana.NewAccountMeta(a.SystemConfigAccount, false, false),
		solana.NewAccountMeta(a.MintTokenVault, true, false),
		solana.NewAccountMeta(a.TokenVault, true, false),
		solana.NewAccountMeta(a.BaseVault, true, false),
		solana.NewAccountMeta(a.BaseMint, false, false),
		solana.NewAccountMeta(a.SolFeePayer, true, false),
		solana.NewAccountMeta(a.ReferrerAta, false, false),
		solana.NewAccountMeta(a.ReferrerBaseAta, true, false),
		solana.NewAccountMeta(a.ReferrerMain, true, false),
		solana.NewAccountMeta(a.ReferralAccount, true, false),
		solana.NewAccountMeta(a.ProtocolFeeAccount, false, false),
		solana.NewAccountMeta(a.ProtocolBaseVault, true, false),
		solana.NewAccountMeta(a.PoolState, true, false),
		solana.NewAccountMeta(a.AmmConfig, false, false),
		solana.NewAccountMeta(a.CpSwapProgram, false, false),
		solana.NewAccountMeta(a.Token0Mint, false, false),
		solana.NewAccountMeta(a.Token1Mint, false, false),
		solana.NewAccountMeta(a.Rent, false, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.AssociatedTokenProgram, false, false),
	}
}

// PoolInitAccounts are the remaining accounts mint_tokens forwards to the
// CPMM initialize call when the mint graduates.
type PoolInitAccounts struct {
	CpSwapProgram        solana.PublicKey
	User                 solana.PublicKey
	AmmConfig            solana.PublicKey
	Authority            solana.PublicKey
	PoolState            solana.PublicKey
	Token0Mint           solana.PublicKey
	Token1Mint           solana.PublicKey
	LpMint               solana.PublicKey
	CreatorToken0        solana.PublicKey
	CreatorToken1        solana.PublicKey
	CreatorLpToken       solana.PublicKey
	Token0Vault          solana.PublicKey
	Token1Vault          solana.PublicKey
	CreatePoolFeeReceive solana.PublicKey
	Observation          solana.PublicKey
	TokenProgram         solana.PublicKey
	Token0Program        solana.PublicKey
	Token1Program        solana.PublicKey
	AssociatedProgram    solana.PublicKey
	SystemProgram        solana.PublicKey
	Rent                 solana.PublicKey
}

func (a PoolInitAccounts) metas() solana.AccountMetaSlice {
	writable := func(k solana.PublicKey) *solana.AccountMeta { return solana.NewAccountMeta(k, true, false) }
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.CpSwapProgram, false, false),
		solana.NewAccountMeta(a.User, true, true),
		writable(a.AmmConfig),
		writable(a.Authority),
		writable(a.PoolState),
		writable(a.Token0Mint),
		writable(a.Token1Mint),
		writable(a.LpMint),
		writable(a.CreatorToken0),
		writable(a.CreatorToken1),
		writable(a.CreatorLpToken),
		writable(a.Token0Vault),
		writable(a.Token1Vault),
		writable(a.CreatePoolFeeReceive),
		writable(a.Observation),
		writable(a.TokenProgram),
		writable(a.Token0Program),
		writable(a.Token1Program),
		writable(a.AssociatedProgram),
		writable(a.SystemProgram),
		writable(a.Rent),
	}
}

type mintTokensArgs struct {
	TokenName   string
	TokenSymbol string
	CodeHash    []byte
}

// NewMintTokensInstruction mints the next batch of name/symbol to the user,
// paying the referrer behind codeHash.
func NewMintTokensInstruction(programID solana.PublicKey, name, symbol string, codeHash solana.PublicKey, accounts MintTokensAccounts, pool PoolInitAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(MintTokensDiscriminator, mintTokensArgs{
		TokenName:   name,
		TokenSymbol: symbol,
		CodeHash:    codeHash.Bytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("mint_tokens: %w", err)
	}
	metas := append(accounts.metas(), pool.metas()...)
	return solana.NewInstruction(programID, metas, data), nil
}

// RefundAccounts is the account list of refund.
type RefundAccounts struct {
	Mint                solana.PublicKey
	RefundAccount       solana.PublicKey
	ConfigAccount       solana.PublicKey
	TokenAta            solana.PublicKey
	TokenVault          solana.PublicKey
	ProtocolFeeAccount  solana.PublicKey
	SystemConfigAccount solana.PublicKey
	Payer               solana.PublicKey
	BaseVault           solana.PublicKey
	PayerBaseVault      solana.PublicKey
	ProtocolBaseVault   solana.PublicKey
	TokenProgram        solana.PublicKey
	SystemProgram       solana.PublicKey
}

type refundArgs struct {
	TokenName   string
	TokenSymbol string
}

// NewRefundInstruction returns the user's tokens to the mint and pays back
// their base tokens minus the refund fee.
func NewRefundInstruction(programID solana.PublicKey, name, symbol string, a RefundAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(RefundDiscriminator, refundArgs{TokenName: name, TokenSymbol: symbol})
	if err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Mint, true, false),
		solana.NewAccountMeta(a.RefundAccount, true, false),
		solana.NewAccountMeta(a.ConfigAccount, true, false),
		solana.NewAccountMeta(a.TokenAta, true, false),
		solana.NewAccountMeta(a.TokenVault, true, false),
		solana.NewAccountMeta(a.ProtocolFeeAccount, true, false),
		solana.NewAccountMeta(a.SystemConfigAccount, false, false),
		solana.NewAccountMeta(a.Payer, true, true),
		solana.NewAccountMeta(a.BaseVault, true, false),
		solana.NewAccountMeta(a.PayerBaseVault, true, false),
		solana.NewAccountMeta(a.ProtocolBaseVault, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// TokenMetadata names a launch. Field order follows the program.
type TokenMetadata struct {
	Symbol string
	Name   string
	URI    string
}

// InitializeTokenConfigData is the emission schedule of a launch. The two
// ratios are passed as percentages.
type InitializeTokenConfigData struct {
	TargetEras                    uint32
	EpochesPerEra                 uint64
	TargetSecondsPerEpoch         uint64
	ReduceRatio                   float64
	InitialMintSize               uint64
	InitialTargetMintSizePerEpoch uint64
	FeeRate                       uint64
	LiquidityTokensRatio          float64
	StartTimestamp                uint64
}

// InitializeTokenAccounts is the account list of initialize_token.
type InitializeTokenAccounts struct {
	Metadata               solana.PublicKey
	Payer                  solana.PublicKey
	Mint                   solana.PublicKey
	ConfigAccount          solana.PublicKey
	ReferrerThrottle       solana.PublicKey
	LaunchRuleAccount      solana.PublicKey
	MintTokenVault         solana.PublicKey
	TokenVault             solana.PublicKey
	BaseMint               solana.PublicKey
	PayerBaseAta           solana.PublicKey
	BaseVault              solana.PublicKey
	SystemConfigAccount    solana.PublicKey
	ProtocolFeeAccount     solana.PublicKey
	ProtocolBaseVault      solana.PublicKey
	Rent                   solana.PublicKey
	SystemProgram          solana.PublicKey
	TokenProgram           solana.PublicKey
	TokenMetadataProgram   solana.PublicKey
	AssociatedTokenProgram solana.PublicKey
}

type initializeTokenArgs struct {
	Metadata       TokenMetadata
	InitConfigData InitializeTokenConfigData
}

// NewInitializeTokenInstruction launches a new fair mint token.
func NewInitializeTokenInstruction(programID solana.PublicKey, metadata TokenMetadata, params InitializeTokenConfigData, a InitializeTokenAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(InitializeTokenDiscriminator, initializeTokenArgs{Metadata: metadata, InitConfigData: params})
	if err != nil {
		return nil, fmt.Errorf("initialize_token: %w", err)
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Metadata, true, false),
		solana.NewAccountMeta(a.Payer, true, true),
		solana.NewAccountMeta(a.Mint, true, false),
		solana.NewAccountMeta(a.ConfigAccount, true, false),
		solana.NewAccountMeta(a.ReferrerThrottle, true, false),
		solana.NewAccountMeta(a.LaunchRuleAccount, false, false),
		solana.NewAccountMeta(a.MintTokenVault, true, false),
		solana.NewAccountMeta(a.TokenVault, true, false),
		solana.NewAccountMeta(a.BaseMint, false, false),
		solana.NewAccountMeta(a.PayerBaseAta, true, false),
		solana.NewAccountMeta(a.BaseVault, true, false),
		solana.NewAccountMeta(a.SystemConfigAccount, true, false),
		solana.NewAccountMeta(a.ProtocolFeeAccount, true, false),
		solana.NewAccountMeta(a.ProtocolBaseVault, true, false),
		solana.NewAccountMeta(a.Rent, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.TokenMetadataProgram, false, false),
		solana.NewAccountMeta(a.AssociatedTokenProgram, false, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// SetReferrerCodeAccounts is the account list of set_referrer_code.
type SetReferrerCodeAccounts struct {
	Payer                  solana.PublicKey
	Mint                   solana.PublicKey
	ReferrerAta            solana.PublicKey
	ReferralAccount        solana.PublicKey
	ConfigAccount          solana.PublicKey
	SystemConfigAccount    solana.PublicKey
	CodeAccount            solana.PublicKey
	ReferrerThrottle       solana.PublicKey
	SystemProgram          solana.PublicKey
	TokenProgram           solana.PublicKey
	AssociatedTokenProgram solana.PublicKey
}

type setReferrerCodeArgs struct {
	TokenName   string
	TokenSymbol string
	CodeHash    []byte
}

// NewSetReferrerCodeInstruction registers the payer as referrer of name/symbol
// under codeHash.
func NewSetReferrerCodeInstruction(programID solana.PublicKey, name, symbol string, codeHash solana.PublicKey, a SetReferrerCodeAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(SetReferrerCodeDiscriminator, setReferrerCodeArgs{
		TokenName:   name,
		TokenSymbol: symbol,
		CodeHash:    codeHash.Bytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("set_referrer_code: %w", err)
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Payer, true, true),
		solana.NewAccountMeta(a.Mint, false, false),
		solana.NewAccountMeta(a.ReferrerAta, true, false),
		solana.NewAccountMeta(a.ReferralAccount, true, false),
		solana.NewAccountMeta(a.ConfigAccount, false, false),
		solana.NewAccountMeta(a.SystemConfigAccount, false, false),
		solana.NewAccountMeta(a.CodeAccount, true, false),
		solana.NewAccountMeta(a.ReferrerThrottle, true, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.AssociatedTokenProgram, false, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}
