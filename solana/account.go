package solana

import (
	"bytes"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64

	Delegate        *solana.PublicKey
	DelegatedAmount uint64

	IsInitialized bool
	IsFrozen      bool

	// IsNative marks a wrapped SOL account; RentExemptReserve is then set.
	IsNative          bool
	RentExemptReserve *uint64

	CloseAuthority *solana.PublicKey
}

// https://github.com/solana-labs/solana-program-library/blob/d72289c79a04411c69a8bf1054f7156b6196f9b3/token/js/src/state/account.ts#L69
type tokenAccountLayout struct {
	Mint                 solana.PublicKey
	Owner                solana.PublicKey
	Amount               uint64
	DelegateOption       uint32
	Delegate             solana.PublicKey
	State                uint8
	IsNativeOption       uint32
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption uint32
	CloseAuthority       solana.PublicKey
}

const tokenAccountSize = 165

// DecodeTokenAccount decodes the base token account layout. Token-2022
// accounts carry extensions after the first 165 bytes, which are ignored.
func DecodeTokenAccount(address solana.PublicKey, data []byte) (*TokenAccount, error) {
	if len(data) < tokenAccountSize {
		return nil, fmt.Errorf("token account %s: %d bytes, want at least %d", address, len(data), tokenAccountSize)
	}
	raw := &tokenAccountLayout{}
	if err := binary.NewBinDecoder(data[:tokenAccountSize]).Decode(raw); err != nil {
		return nil, fmt.Errorf("token account %s: %w", address, err)
	}

	acc := &TokenAccount{
		Address:         address,
		Mint:            raw.Mint,
		Owner:           raw.Owner,
		Amount:          raw.Amount,
		DelegatedAmount: raw.DelegatedAmount,
		IsInitialized:   AccountState(raw.State) != AccountStateUninitialized,
		IsFrozen:        AccountState(raw.State) == AccountStateFrozen,
		IsNative:        raw.IsNativeOption > 0,
	}
	if raw.DelegateOption > 0 {
		delegate := raw.Delegate
		acc.Delegate = &delegate
	}
	if raw.IsNativeOption > 0 {
		reserve := raw.IsNative
		acc.RentExemptReserve = &reserve
	}
	if raw.CloseAuthorityOption > 0 {
		closeAuthority := raw.CloseAuthority
		acc.CloseAuthority = &closeAuthority
	}
	return acc, nil
}

// EncodeTokenAccount is the inverse of DecodeTokenAccount for the base layout.
func EncodeTokenAccount(acc *TokenAccount) ([]byte, error) {
	raw := &tokenAccountLayout{
		Mint:            acc.Mint,
		Owner:           acc.Owner,
		Amount:          acc.Amount,
		DelegatedAmount: acc.DelegatedAmount,
		State:           uint8(AccountStateInitialized),
	}
	if acc.IsFrozen {
		raw.State = uint8(AccountStateFrozen)
	}
	if acc.Delegate != nil {
		raw.DelegateOption = 1
		raw.Delegate = *acc.Delegate
	}
	if acc.RentExemptReserve != nil {
		raw.IsNativeOption = 1
		raw.IsNative = *acc.RentExemptReserve
	}
	if acc.CloseAuthority != nil {
		raw.CloseAuthorityOption = 1
		raw.CloseAuthority = *acc.CloseAuthority
	}
	buf := new(bytes.Buffer)
	if err := binary.NewBinEncoder(buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("token account %s: %w", acc.Address, err)
	}
	return buf.Bytes(), nil
}
