package raydiumcp

import (
	"bytes"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

var (
	SwapBaseInputDiscriminator  = solanago.InstructionDiscriminator("swap_base_input")
	SwapBaseOutputDiscriminator = solanago.InstructionDiscriminator("swap_base_output")
	DepositDiscriminator        = solanago.InstructionDiscriminator("deposit")
	WithdrawDiscriminator       = solanago.InstructionDiscriminator("withdraw")
	InitializeDiscriminator     = solanago.InstructionDiscriminator("initialize")
)

// MemoProgramID is required by withdraw.
var MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

func encodeArgs(disc [8]byte, args any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := binary.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SwapAccounts is the account list shared by both swap instructions.
type SwapAccounts struct {
	Payer              solana.PublicKey
	Authority          solana.PublicKey
	AmmConfig          solana.PublicKey
	PoolState          solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	InputTokenProgram  solana.PublicKey
	OutputTokenProgram solana.PublicKey
	InputMint          solana.PublicKey
	OutputMint         solana.PublicKey
	ObservationState   solana.PublicKey
}

func (a SwapAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Payer, false, true),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.AmmConfig, false, false),
		solana.NewAccountMeta(a.PoolState, true, false),
		solana.NewAccountMeta(a.InputTokenAccount, true, false),
		solana.NewAccountMeta(a.OutputTokenAccount, true, false),
		solana.NewAccountMeta(a.InputVault, true, false),
		solana.NewAccountMeta(a.OutputVault, true, false),
		solana.NewAccountMeta(a.InputTokenProgram, false, false),
		solana.NewAccountMeta(a.OutputTokenProgram, false, false),
		solana.NewAccountMeta(a.InputMint, false, false),
		solana.NewAccountMeta(a.OutputMint, false, false),
		solana.NewAccountMeta(a.ObservationState, true, false),
	}
}

type swapBaseInputArgs struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

type swapBaseOutputArgs struct {
	MaxAmountIn uint64
	AmountOut   uint64
}

// NewSwapBaseInputInstruction swaps an exact amountIn for at least minimumAmountOut.
func NewSwapBaseInputInstruction(programID solana.PublicKey, amountIn, minimumAmountOut uint64, accounts SwapAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(SwapBaseInputDiscriminator, swapBaseInputArgs{AmountIn: amountIn, MinimumAmountOut: minimumAmountOut})
	if err != nil {
		return nil, fmt.Errorf("swap_base_input: %w", err)
	}
	return solana.NewInstruction(programID, accounts.metas(), data), nil
}

// NewSwapBaseOutputInstruction swaps at most maxAmountIn for an exact amountOut.
func NewSwapBaseOutputInstruction(programID solana.PublicKey, maxAmountIn, amountOut uint64, accounts SwapAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(SwapBaseOutputDiscriminator, swapBaseOutputArgs{MaxAmountIn: maxAmountIn, AmountOut: amountOut})
	if err != nil {
		return nil, fmt.Errorf("swap_base_output: %w", err)
	}
	return solana.NewInstruction(programID, accounts.metas(), data), nil
}

// LiquidityAccounts is the account list of deposit and withdraw.
type LiquidityAccounts struct {
	Owner            solana.PublicKey
	Authority        solana.PublicKey
	PoolState        solana.PublicKey
	OwnerLpToken     solana.PublicKey
	Token0Account    solana.PublicKey
	Token1Account    solana.PublicKey
	Token0Vault      solana.PublicKey
	Token1Vault      solana.PublicKey
	TokenProgram     solana.PublicKey
	TokenProgram2022 solana.PublicKey
	Vault0Mint       solana.PublicKey
	Vault1Mint       solana.PublicKey
	LpMint           solana.PublicKey
}

func (a LiquidityAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Owner, false, true),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.PoolState, true, false),
		solana.NewAccountMeta(a.OwnerLpToken, true, false),
		solana.NewAccountMeta(a.Token0Account, true, false),
		solana.NewAccountMeta(a.Token1Account, true, false),
		solana.NewAccountMeta(a.Token0Vault, true, false),
		solana.NewAccountMeta(a.Token1Vault, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.TokenProgram2022, false, false),
		solana.NewAccountMeta(a.Vault0Mint, false, false),
		solana.NewAccountMeta(a.Vault1Mint, false, false),
		solana.NewAccountMeta(a.LpMint, true, false),
	}
}

type depositArgs struct {
	LpTokenAmount       uint64
	MaximumToken0Amount uint64
	MaximumToken1Amount uint64
}

type withdrawArgs struct {
	LpTokenAmount       uint64
	MinimumToken0Amount uint64
	MinimumToken1Amount uint64
}

// NewDepositInstruction mints lpAmount LP tokens for at most max0/max1 of each token.
func NewDepositInstruction(programID solana.PublicKey, lpAmount, max0, max1 uint64, accounts LiquidityAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(DepositDiscriminator, depositArgs{
		LpTokenAmount:       lpAmount,
		MaximumToken0Amount: max0,
		MaximumToken1Amount: max1,
	})
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	return solana.NewInstruction(programID, accounts.metas(), data), nil
}

// NewWithdrawInstruction burns lpAmount LP tokens for at least min0/min1 of each token.
func NewWithdrawInstruction(programID solana.PublicKey, lpAmount, min0, min1 uint64, accounts LiquidityAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(WithdrawDiscriminator, withdrawArgs{
		LpTokenAmount:       lpAmount,
		MinimumToken0Amount: min0,
		MinimumToken1Amount: min1,
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	metas := append(accounts.metas(), solana.NewAccountMeta(MemoProgramID, false, false))
	return solana.NewInstruction(programID, metas, data), nil
}

// InitializeAccounts is the account list of initialize.
type InitializeAccounts struct {
	Creator                solana.PublicKey
	AmmConfig              solana.PublicKey
	Authority              solana.PublicKey
	PoolState              solana.PublicKey
	Token0Mint             solana.PublicKey
	Token1Mint             solana.PublicKey
	LpMint                 solana.PublicKey
	CreatorToken0          solana.PublicKey
	CreatorToken1          solana.PublicKey
	CreatorLpToken         solana.PublicKey
	Token0Vault            solana.PublicKey
	Token1Vault            solana.PublicKey
	CreatePoolFee          solana.PublicKey
	ObservationState       solana.PublicKey
	TokenProgram           solana.PublicKey
	Token0Program          solana.PublicKey
	Token1Program          solana.PublicKey
	AssociatedTokenProgram solana.PublicKey
	SystemProgram          solana.PublicKey
	Rent                   solana.PublicKey
}

type initializeArgs struct {
	InitAmount0 uint64
	InitAmount1 uint64
	OpenTime    uint64
}

// NewInitializeInstruction creates a pool seeded with initAmount0/initAmount1.
func NewInitializeInstruction(programID solana.PublicKey, initAmount0, initAmount1, openTime uint64, a InitializeAccounts) (solana.Instruction, error) {
	data, err := encodeArgs(InitializeDiscriminator, initializeArgs{
		InitAmount0: initAmount0,
		InitAmount1: initAmount1,
		OpenTime:    openTime,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Creator, true, true),
		solana.NewAccountMeta(a.AmmConfig, false, false),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.PoolState, true, false),
		solana.NewAccountMeta(a.Token0Mint, false, false),
		solana.NewAccountMeta(a.Token1Mint, false, false),
		solana.NewAccountMeta(a.LpMint, true, false),
		solana.NewAccountMeta(a.CreatorToken0, true, false),
		solana.NewAccountMeta(a.CreatorToken1, true, false),
		solana.NewAccountMeta(a.CreatorLpToken, true, false),
		solana.NewAccountMeta(a.Token0Vault, true, false),
		solana.NewAccountMeta(a.Token1Vault, true, false),
		solana.NewAccountMeta(a.CreatePoolFee, true, false),
		solana.NewAccountMeta(a.ObservationState, true, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.Token0Program, false, false),
		solana.NewAccountMeta(a.Token1Program, false, false),
		solana.NewAccountMeta(a.AssociatedTokenProgram, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.Rent, false, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}
