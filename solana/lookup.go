package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"

	"github.com/krazyTry/flipflop-go/shared"
)

// LoadLookupTable reads an address lookup table through any Ledger.
func LoadLookupTable(ctx context.Context, ledger Ledger, table solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	account, err := ledger.GetAccountData(ctx, table)
	if err != nil {
		return nil, err
	}
	if !account.Exists {
		return nil, shared.Errorf(shared.KindAccountNotFound, "lookup table %s", table)
	}
	state, err := addresslookuptable.DecodeAddressLookupTableState(account.Data)
	if err != nil {
		return nil, fmt.Errorf("decode lookup table %s: %w", table, err)
	}
	return map[solana.PublicKey]solana.PublicKeySlice{table: state.Addresses}, nil
}
