package solana

import (
	"context"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/krazyTry/flipflop-go/shared"
	"github.com/krazyTry/flipflop-go/solana/token2022"
)

// Mint is a decoded mint account plus the program that owns it.
type Mint struct {
	token.Mint
	Address solana.PublicKey
	// Program is the SPL token program or Token-2022.
	Program solana.PublicKey
	// TransferFee is set for Token-2022 mints with the transfer fee extension.
	TransferFee *token2022.TransferFeeConfig
}

func DecodeMint(account AccountData) (*Mint, error) {
	m := &Mint{Address: account.Address, Program: account.Owner}
	if err := m.Mint.UnmarshalWithDecoder(binary.NewBinDecoder(account.Data)); err != nil {
		return nil, fmt.Errorf("mint %s: %w", account.Address, err)
	}
	if account.Owner.Equals(solana.Token2022ProgramID) {
		fee, err := token2022.ParseTransferFeeConfig(account.Data)
		if err != nil {
			return nil, fmt.Errorf("mint %s: %w", account.Address, err)
		}
		m.TransferFee = fee
	}
	return m, nil
}

// GetMint reads and decodes a mint, failing with AccountNotFound when absent.
func GetMint(ctx context.Context, ledger Ledger, mint solana.PublicKey) (*Mint, error) {
	account, err := ledger.GetAccountData(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !account.Exists {
		return nil, shared.Errorf(shared.KindAccountNotFound, "mint %s", mint)
	}
	return DecodeMint(account)
}

// GetTokenAccount reads a token account. A nil account with a nil error means absent.
func GetTokenAccount(ctx context.Context, ledger Ledger, address solana.PublicKey) (*TokenAccount, error) {
	account, err := ledger.GetAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	if !account.Exists {
		return nil, nil
	}
	return DecodeTokenAccount(address, account.Data)
}

// GetTokenBalance returns the token amount held at address, 0 when absent.
func GetTokenBalance(ctx context.Context, ledger Ledger, address solana.PublicKey) (uint64, error) {
	acc, err := GetTokenAccount(ctx, ledger, address)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Amount, nil
}
