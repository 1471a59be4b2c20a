package solana

import (
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// FindAssociatedTokenAddress derives the ATA of wallet for mint under tokenProgram.
// Off-curve owners (PDAs) are allowed.
func FindAssociatedTokenAddress(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := Derive([][]byte{wallet.Bytes(), tokenProgram.Bytes(), mint.Bytes()}, solana.SPLAssociatedTokenAccountProgramID)
	return ata, err
}

// MustAssociatedTokenAddress panics on derivation failure; for fixed, known-good inputs only.
func MustAssociatedTokenAddress(wallet, mint, tokenProgram solana.PublicKey) solana.PublicKey {
	ata, err := FindAssociatedTokenAddress(wallet, mint, tokenProgram)
	if err != nil {
		panic(err)
	}
	return ata
}

// CreateAssociatedTokenAccountInstruction supports both SPL Token and Token-2022.
// The classic program goes through the typed builder so MergeInstructions can dedupe it.
func CreateAssociatedTokenAccountInstruction(payer, ata, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	if tokenProgram.Equals(solana.TokenProgramID) {
		return associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build()
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(system.ProgramID, false, false),
		solana.NewAccountMeta(tokenProgram, false, false),
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accounts, nil)
}

// WrapSOLInstruction moves lamports into a native token account and syncs its amount.
func WrapSOLInstruction(from, to solana.PublicKey, amount uint64) []solana.Instruction {
	transferIx := system.NewTransferInstructionBuilder().
		SetFundingAccount(from).
		SetRecipientAccount(to).
		SetLamports(amount).
		Build()
	syncIx := token.NewSyncNativeInstructionBuilder().
		SetTokenAccount(to).
		Build()
	return []solana.Instruction{transferIx, syncIx}
}

// UnwrapSOLInstruction closes a native token account, releasing all lamports to receiver.
func UnwrapSOLInstruction(account, owner, receiver solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstructionBuilder().
		SetAccount(account).
		SetDestinationAccount(receiver).
		SetOwnerAccount(owner).
		Build()
}

// BurnInstruction burns amount from account, signed by owner.
func BurnInstruction(account, mint, owner solana.PublicKey, amount uint64) solana.Instruction {
	return token.NewBurnInstructionBuilder().
		SetAmount(amount).
		SetSourceAccount(account).
		SetMintAccount(mint).
		SetOwnerAccount(owner).
		Build()
}
